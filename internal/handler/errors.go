package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/middleware"
	"dentalflow/internal/model"
	"dentalflow/internal/store"
)

func principal(ctx context.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(ctx)
	if !ok || p.ID == "" {
		return model.Principal{}, status.Error(codes.Unauthenticated, "not signed in")
	}
	return p, nil
}

func (h *Handler) check(req any) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	st := status.New(codes.InvalidArgument, "invalid request")
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return st.Err()
	}
	br := &errdetails.BadRequest{}
	for _, fe := range verrs {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       fe.Field(),
			Description: describe(fe),
		})
	}
	if detailed, derr := st.WithDetails(br); derr == nil {
		return detailed.Err()
	}
	return st.Err()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "invalid"
}

// storeErr maps store sentinels to status codes; anything else is logged and
// reported as internal.
func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, what+" not found")
	case errors.Is(err, store.ErrConflict):
		return status.Error(codes.Aborted, what+" was modified, reload and retry")
	case errors.Is(err, store.ErrDuplicate):
		return status.Error(codes.AlreadyExists, what+" already exists")
	}
	log.WithError(err).WithField("entity", what).Error("store call failed")
	return status.Error(codes.Internal, "internal error")
}
