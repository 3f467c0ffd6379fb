package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/storage"
)

// InvalidFieldHeader carries "field=message" pairs for form validation errors.
const InvalidFieldHeader = "X-Invalid-Field"

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var validation *auth.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrDuplicateID):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, calculator.ErrSplitMismatch):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.As(err, &validation):
		cerr := connect.NewError(connect.CodeInvalidArgument, err)
		for field, msg := range validation.Fields {
			cerr.Meta().Add(InvalidFieldHeader, field+"="+msg)
		}
		return cerr
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
