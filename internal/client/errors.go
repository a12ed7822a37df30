package client

import (
	"errors"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dentalflow/internal/auth"
	"dentalflow/internal/store"
)

var (
	ErrNotSignedIn      = errors.New("not signed in")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnavailable      = errors.New("service unavailable")
)

// Error carries the server's message and unwraps to the matching sentinel so
// callers can use errors.Is without looking at gRPC codes.
type Error struct {
	Code    codes.Code
	Message string
	kind    error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.kind }

func translate(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	e := &Error{Code: st.Code(), Message: st.Message()}
	switch st.Code() {
	case codes.NotFound:
		e.kind = store.ErrNotFound
	case codes.Aborted:
		e.kind = store.ErrConflict
	case codes.AlreadyExists:
		e.kind = auth.ErrEmailTaken
	case codes.Unauthenticated:
		e.kind = ErrUnauthenticated
	case codes.PermissionDenied:
		e.kind = ErrPermissionDenied
	case codes.InvalidArgument:
		e.kind = ErrInvalidArgument
		e.Message = withViolations(st)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		e.kind = ErrUnavailable
	default:
		e.kind = err
	}
	return e
}

func withViolations(st *status.Status) string {
	var parts []string
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, v := range br.GetFieldViolations() {
			parts = append(parts, v.GetField()+" "+v.GetDescription())
		}
	}
	if len(parts) == 0 {
		return st.Message()
	}
	return st.Message() + ": " + strings.Join(parts, ", ")
}

func isUnauthenticated(err error) bool {
	return status.Code(err) == codes.Unauthenticated
}
