package handler

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/auth"
	"dentalflow/internal/rpc"
)

func (h *Handler) SignUp(ctx context.Context, req *rpc.SignUpRequest) (*rpc.SessionResponse, error) {
	if err := h.check(req); err != nil {
		return nil, err
	}
	s, err := h.identity.SignUp(ctx, req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		return nil, status.Error(codes.AlreadyExists, "email already registered")
	}
	if err != nil {
		log.WithError(err).Error("sign up")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return sessionResponse(s), nil
}

func (h *Handler) SignIn(ctx context.Context, req *rpc.SignInRequest) (*rpc.SessionResponse, error) {
	if err := h.check(req); err != nil {
		return nil, err
	}
	s, err := h.identity.SignIn(ctx, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	if err != nil {
		log.WithError(err).Error("sign in")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return sessionResponse(s), nil
}

func (h *Handler) Refresh(ctx context.Context, req *rpc.RefreshRequest) (*rpc.SessionResponse, error) {
	if err := h.check(req); err != nil {
		return nil, err
	}
	s, err := h.identity.Refresh(ctx, req.RefreshToken)
	if errors.Is(err, auth.ErrBadToken) {
		return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
	}
	if err != nil {
		log.WithError(err).Error("refresh")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return sessionResponse(s), nil
}

func (h *Handler) SignOut(ctx context.Context, _ *rpc.Empty) (*rpc.Empty, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.identity.SignOut(ctx, p.ID); err != nil {
		log.WithError(err).WithField("account_id", p.ID).Error("sign out")
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &rpc.Empty{}, nil
}
