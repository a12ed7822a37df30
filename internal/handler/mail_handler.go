package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/model"
	"dentalflow/internal/rpc"
)

// EnqueueMail writes an envelope for the dispatch worker to pick up.
func (h *Handler) EnqueueMail(ctx context.Context, req *rpc.EnqueueMailRequest) (*rpc.MailResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	env := &model.MailEnvelope{
		To:            req.To,
		Subject:       req.Subject,
		Text:          req.Text,
		AppointmentID: req.AppointmentID,
		CreatedBy:     p.ID,
	}
	if err := h.store.CreateMail(ctx, env); err != nil {
		return nil, storeErr(err, "mail")
	}
	return &rpc.MailResponse{Mail: *env}, nil
}

// GetMail returns an envelope to the account that enqueued it; anyone else
// sees it as missing.
func (h *Handler) GetMail(ctx context.Context, req *rpc.GetMailRequest) (*rpc.MailResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	env, err := h.store.GetMail(ctx, req.ID)
	if err != nil {
		return nil, storeErr(err, "mail")
	}
	if env.CreatedBy != p.ID {
		return nil, status.Error(codes.NotFound, "mail not found")
	}
	return &rpc.MailResponse{Mail: *env}, nil
}
