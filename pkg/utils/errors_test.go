package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid body", NewAppError(ErrCodeInvalidBody, "JSON inválido"), http.StatusBadRequest},
		{"missing field", NewAppError(ErrCodeMissingField, "Campo obrigatório ausente: acesso"), http.StatusBadRequest},
		{"invalid uid", NewAppError(ErrCodeInvalidUID, "UID inválido"), http.StatusBadRequest},
		{"store error", NewAppError(ErrCodeStoreError, "insert failed"), http.StatusInternalServerError},
		{"store not ready", NewAppError(ErrCodeStoreNotReady, "not ready"), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("handler: %w", NewAppError(ErrCodeInvalidUID, "UID inválido")), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestWrapAppError_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapAppError(ErrCodeStoreError, "insert reading", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "connection refused", err.Details)
	assert.True(t, IsStoreError(err))
	assert.False(t, IsClientError(err))
	assert.Equal(t, "STORE_ERROR: insert reading (connection refused)", err.Error())
}

func TestCodeOf_Unclassified(t *testing.T) {
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.False(t, HasCode(nil, ErrCodeStoreError))
}
