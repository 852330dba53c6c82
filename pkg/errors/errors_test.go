package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narwhalmedia/catalog/pkg/errors"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Wrap(errors.ErrorTypeUnavailable, "fetch libraries", cause)

	assert.True(t, errors.IsUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "UNAVAILABLE: fetch libraries: connection refused", err.Error())
	assert.Nil(t, errors.Wrap(errors.ErrorTypeInternal, "noop", nil))
}

func TestTypeOfThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("scan failed: %w", errors.NotFound("library"))
	assert.Equal(t, errors.ErrorTypeNotFound, errors.TypeOf(err))
	assert.Equal(t, errors.ErrorType(""), errors.TypeOf(stderrors.New("plain")))
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		code  int
		check func(error) bool
	}{
		{401, errors.IsUnauthorized},
		{403, errors.IsUnauthorized},
		{404, errors.IsNotFound},
		{400, errors.IsBadRequest},
		{429, errors.IsUnavailable},
		{503, errors.IsUnavailable},
		{418, errors.IsInternal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.True(t, tt.check(errors.FromHTTPStatus(tt.code, "status")))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, errors.IsDuplicateError(stderrors.New("UNIQUE constraint failed: media_items.source_id")))
	assert.True(t, errors.IsDuplicateError(stderrors.New(`ERROR: duplicate key value violates unique constraint "idx_item_key"`)))
	assert.False(t, errors.IsDuplicateError(nil))
	assert.False(t, errors.IsDuplicateError(stderrors.New("timeout")))
}
