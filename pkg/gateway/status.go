package gateway

import (
	"context"
	"errors"

	"github.com/bert42/fileserver/pkg/fserrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus converts a core error into the status returned to the client.
//
// Typed errors carry only their Message to the client; the wrapped cause
// and the resolved filesystem path stay in the server log.
func toStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}

	var fe *fserrors.Error
	if errors.As(err, &fe) {
		return status.New(codeFor(fe.Code), fe.Message)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	}

	if st, ok := status.FromError(err); ok {
		return st
	}
	return status.New(codes.Internal, err.Error())
}

func codeFor(c fserrors.Code) codes.Code {
	switch c {
	case fserrors.InvalidArgument, fserrors.InvalidPath:
		return codes.InvalidArgument
	case fserrors.PermissionDenied:
		return codes.PermissionDenied
	case fserrors.NotFound:
		return codes.NotFound
	case fserrors.Config:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}
