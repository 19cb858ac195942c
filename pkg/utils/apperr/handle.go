package apperr

import (
	"context"
	"errors"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs an error that cannot be returned to a caller, such as one raised in background work
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}
	logger := ctxlog.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error("application error", "error", err, "values", ge.Values())
		return
	}
	logger.Error("application error", "error", err)
}

// Degrade logs an error from an optional step that the caller continues without
func Degrade(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}
	ctxlog.From(ctx).Warn(msg, "error", err)
}
