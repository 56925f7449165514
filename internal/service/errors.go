package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/noah-isme/sma-grading-api/pkg/errors"
)

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps a missing row to a not-found error naming the resource.
func lookupError(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return internalError(err, "failed to load "+resource)
}
