package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/model"
	"dentalflow/internal/rpc"
)

// PutDentist writes the caller's own profile.
func (h *Handler) PutDentist(ctx context.Context, req *rpc.PutDentistRequest) (*rpc.Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	if req.ID != p.ID {
		return nil, status.Error(codes.PermissionDenied, "can only write own profile")
	}
	if err := h.store.PutDentist(ctx, model.Dentist{ID: req.ID, Name: req.Name}); err != nil {
		return nil, storeErr(err, "dentist")
	}
	return &rpc.Empty{}, nil
}

func (h *Handler) GetDentist(ctx context.Context, req *rpc.GetDentistRequest) (*rpc.DentistResponse, error) {
	if err := h.check(req); err != nil {
		return nil, err
	}
	d, err := h.store.GetDentist(ctx, req.ID)
	if err != nil {
		return nil, storeErr(err, "dentist")
	}
	return &rpc.DentistResponse{Dentist: *d}, nil
}
