package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrPermissionDenied, "You cannot delete your own account.")

	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.False(t, errors.Is(err, ErrProfileNotFound))
	assert.Equal(t, "You cannot delete your own account.", err.Message)
	assert.Equal(t, "You do not have permission to access this page.", ErrPermissionDenied.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("query: %w", sql.ErrConnDone))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.True(t, errors.Is(appErr, sql.ErrConnDone))
}

func TestFromErrorFindsWrappedTypedError(t *testing.T) {
	inner := Clone(ErrDuplicateReceipt, "receipt R-1 already exists")
	appErr := FromError(fmt.Errorf("record payment: %w", inner))

	assert.Equal(t, "DUPLICATE_RECEIPT", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
}

func TestHelpers(t *testing.T) {
	base := errors.New("boom")
	assert.Equal(t, ErrInternal.Code, Internal(base, "x").Code)
	assert.Equal(t, ErrValidation.Code, Invalid(base, "x").Code)
	assert.Equal(t, "x: boom", Invalid(base, "x").Error())
}
