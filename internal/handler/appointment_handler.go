package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/model"
	"dentalflow/internal/rpc"
)

func (h *Handler) CreateAppointment(ctx context.Context, req *rpc.CreateAppointmentRequest) (*rpc.AppointmentResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}

	apt := req.Appointment.Appointment()
	apt.ID = ""
	if apt.DentistID == "" {
		apt.DentistID = p.ID
	}
	if apt.DentistID != p.ID {
		return nil, status.Error(codes.PermissionDenied, "cannot book for another dentist")
	}
	apt.CreatedBy = p.ID

	if err := h.store.CreateAppointment(ctx, &apt); err != nil {
		return nil, storeErr(err, "appointment")
	}
	return &rpc.AppointmentResponse{Appointment: apt}, nil
}

func (h *Handler) ListAppointments(ctx context.Context, req *rpc.ListAppointmentsRequest) (*rpc.ListAppointmentsResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	if req.DentistID != p.ID {
		return nil, status.Error(codes.PermissionDenied, "cannot list another dentist's appointments")
	}

	list, err := h.store.ListAppointmentsByDentist(ctx, req.DentistID)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}
	return &rpc.ListAppointmentsResponse{Appointments: list}, nil
}

// owned loads an appointment; someone else's appointment reads as missing.
func (h *Handler) owned(ctx context.Context, id, dentistID string) (*model.Appointment, error) {
	cur, err := h.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appointment")
	}
	if cur.DentistID != dentistID {
		return nil, status.Error(codes.NotFound, "appointment not found")
	}
	return cur, nil
}

func (h *Handler) UpdateAppointment(ctx context.Context, req *rpc.UpdateAppointmentRequest) (*rpc.AppointmentResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	if req.Appointment.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	if req.Appointment.Version == 0 {
		return nil, status.Error(codes.InvalidArgument, "version required")
	}
	if _, err := h.owned(ctx, req.Appointment.ID, p.ID); err != nil {
		return nil, err
	}

	apt := req.Appointment.Appointment()
	if apt.DentistID == "" {
		apt.DentistID = p.ID
	}
	if apt.DentistID != p.ID {
		return nil, status.Error(codes.PermissionDenied, "cannot move appointment to another dentist")
	}
	if err := h.store.UpdateAppointment(ctx, &apt); err != nil {
		return nil, storeErr(err, "appointment")
	}
	return &rpc.AppointmentResponse{Appointment: apt}, nil
}

func (h *Handler) DeleteAppointment(ctx context.Context, req *rpc.DeleteAppointmentRequest) (*rpc.Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	if _, err := h.owned(ctx, req.ID, p.ID); err != nil {
		return nil, err
	}
	if err := h.store.DeleteAppointment(ctx, req.ID); err != nil {
		return nil, storeErr(err, "appointment")
	}
	return &rpc.Empty{}, nil
}
