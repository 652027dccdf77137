package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormat(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", Validation("Todo text is required"), "Todo text is required"},
		{"with cause", StoreUnavailable(errors.New("dial tcp: refused")), "task store unavailable: dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeAuthRejected, http.StatusUnauthorized},
		{CodeProviderAuth, http.StatusUnauthorized},
		{CodeQuotaExceeded, http.StatusPaymentRequired},
		{CodeConfigMissing, http.StatusInternalServerError},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeProviderFailed, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{Code("SOMETHING_NEW"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus())
		})
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("update: %w", NotFound())))
}

func TestIsByCode(t *testing.T) {
	err := fmt.Errorf("delete task: %w", NotFound())

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeProviderFailed, "chat provider request failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrProviderFailed))
}
