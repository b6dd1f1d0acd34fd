package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"orderId": "ORD-2026-AB12"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ORD-2026-AB12", body.Data.(map[string]any)["orderId"])
}

func TestWriteSuccessStatusKeepsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": "REQ-2026-0F0F"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestWriteErrorMapsCodesToStatus(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
		msg    string
	}{
		{pkgerrors.CodeValidation, http.StatusBadRequest, "quantity must be a positive integer"},
		{pkgerrors.CodeUnauthorized, http.StatusUnauthorized, "Invalid credentials"},
		{pkgerrors.CodeForbidden, http.StatusForbidden, "Only the main admin can create new admins"},
		{pkgerrors.CodeNotFound, http.StatusNotFound, "Request not found"},
		{pkgerrors.CodeConflict, http.StatusConflict, "Username already registered"},
		{pkgerrors.CodeRateLimit, http.StatusTooManyRequests, "too many login attempts"},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, pkgerrors.New(tc.code, tc.msg))

			require.Equal(t, tc.status, w.Code)
			apiErr := decodeError(t, w)
			assert.Equal(t, string(tc.code), apiErr.Code)
			assert.Equal(t, tc.msg, apiErr.Message, "service message is public for caller errors")
			assert.False(t, apiErr.Retryable)
		})
	}
}

func TestWriteErrorKeepsValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"quantity": "must be at least 1"})
	WriteError(context.Background(), nil, w, err)

	apiErr := decodeError(t, w)
	require.NotNil(t, apiErr.Details)
	assert.Equal(t, "must be at least 1", apiErr.Details.(map[string]any)["quantity"])
}

func TestWriteErrorHidesInternalText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("pq: relation \"requests\" does not exist"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeInternal), apiErr.Code)
	assert.Equal(t, "internal server error", apiErr.Message)
	assert.Nil(t, apiErr.Details)
	assert.True(t, apiErr.Retryable)
}

func TestWriteErrorDependencyIsRetryable(t *testing.T) {
	w := httptest.NewRecorder()
	cause := fmt.Errorf("dial tcp: connection refused")
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "db: approve request"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, "dependency unavailable", apiErr.Message)
	assert.True(t, apiErr.Retryable)
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	ctx := WithRequestID(context.Background(), "req-42")
	WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found"))

	assert.Equal(t, "req-42", decodeError(t, w).RequestID)
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestWriteErrorLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "responses-test", Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "Request not found"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "request.rejected", entry["message"])

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "db"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "request.error", entry["message"])
}
