package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesType(t *testing.T) {
	cause := New(ErrorTypeConnection, "connection refused")
	wrapped := fmt.Errorf("request failed: %w", cause)

	assert.True(t, IsType(wrapped, ErrorTypeConnection))
	assert.Equal(t, ErrorTypeConnection, TypeOf(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeConnection, true},
		{ErrorTypeAuthentication, false},
		{ErrorTypeValidation, false},
		{ErrorTypeData, false},
		{ErrorTypeConfig, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(New(tt.errType, "x")))
		})
	}

	t.Run("plain errors are not retryable", func(t *testing.T) {
		assert.False(t, IsRetryable(assert.AnError))
	})
}

func TestWithDetail(t *testing.T) {
	err := Newf(ErrorTypeData, "unexpected status %d", 502).
		WithDetail("url", "/rest/api/3/search").
		WithDetail("body", "bad gateway")

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "/rest/api/3/search", typed.Details["url"])
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}
