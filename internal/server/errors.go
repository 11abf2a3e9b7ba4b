package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/proto"

	"github.com/at-ishikawa/studyprep/internal/apperrors"
	"github.com/at-ishikawa/studyprep/internal/assessment"
	"github.com/at-ishikawa/studyprep/internal/learning"
)

const errorDomain = "studyprep"

// Reasons set on errdetails.ErrorInfo of errors that are not classified by apperrors.
const (
	reasonNotFound        = "NOT_FOUND"
	reasonUnauthenticated = "UNAUTHENTICATED"
	reasonRateLimited     = "RATE_LIMITED"
)

// toConnectError maps a service error to a Connect error with an ErrorInfo detail.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	if errors.Is(err, assessment.ErrNotFound) || errors.Is(err, learning.ErrNotFound) {
		return newError(connect.CodeNotFound, err, reasonNotFound, nil)
	}
	if errors.Is(err, context.Canceled) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return connect.NewError(connect.CodeInternal, err)
	}

	metadata := make(map[string]string)
	if appErr.Op != "" {
		metadata["operation"] = appErr.Op
	}
	if appErr.Status != "" {
		metadata["status"] = appErr.Status
	}

	switch appErr.Kind {
	case apperrors.KindValidation:
		if appErr.Field != "" {
			metadata["field"] = appErr.Field
		}
		e := newError(connect.CodeInvalidArgument, err, string(appErr.Kind), metadata)
		addDetail(e, &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{
				{Field: appErr.Field, Description: appErr.Message},
			},
		})
		return e
	case apperrors.KindStateConflict, apperrors.KindPoolExhausted:
		return newError(connect.CodeFailedPrecondition, err, string(appErr.Kind), metadata)
	case apperrors.KindTransient:
		return newError(connect.CodeUnavailable, err, string(appErr.Kind), metadata)
	default:
		return newError(connect.CodeInternal, err, string(appErr.Kind), metadata)
	}
}

func newError(code connect.Code, err error, reason string, metadata map[string]string) *connect.Error {
	e := connect.NewError(code, err)
	addDetail(e, &errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: metadata,
	})
	return e
}

func addDetail(e *connect.Error, msg proto.Message) {
	if detail, err := connect.NewErrorDetail(msg); err == nil {
		e.AddDetail(detail)
	}
}

// isClientError reports whether code is caused by the caller rather than the server.
func isClientError(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeFailedPrecondition,
		connect.CodeUnauthenticated, connect.CodePermissionDenied, connect.CodeResourceExhausted,
		connect.CodeAlreadyExists, connect.CodeCanceled:
		return true
	}
	return false
}
