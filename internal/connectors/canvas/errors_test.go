package canvas

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/canvas-sync/internal/core/domain"
)

func TestAPIError_Unwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{401, domain.ErrAuthInvalid},
		{404, domain.ErrNotFound},
		{403, domain.ErrForbidden},
		{500, domain.ErrServerError},
		{503, domain.ErrServerError},
	}
	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &APIError{StatusCode: tt.status})
		assert.ErrorIs(t, err, tt.want, tt.status)
	}

	assert.Nil(t, (&APIError{StatusCode: 400}).Unwrap())
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsNotFound(domain.ErrNotFound))
	assert.False(t, IsNotFound(&APIError{StatusCode: 500}))

	assert.True(t, IsUnauthorized(&APIError{StatusCode: 401}))
	assert.True(t, IsUnauthorized(fmt.Errorf("x: %w", domain.ErrAuthInvalid)))
	assert.False(t, IsUnauthorized(errors.New("other")))

	assert.True(t, IsServerError(&APIError{StatusCode: 502}))
	assert.False(t, IsServerError(&APIError{StatusCode: 404}))

	assert.True(t, IsRateLimited(&RateLimitError{RetryAt: time.Now()}))
	assert.False(t, IsRateLimited(&APIError{StatusCode: 403}))
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "The specified resource does not exist.", URL: "https://x/api/v1/courses/1"}
	assert.Equal(t, "canvas: API error 404: The specified resource does not exist. (URL: https://x/api/v1/courses/1)", err.Error())
}
