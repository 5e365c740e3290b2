package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pribylovaa/research-gateway/internal/clients/interceptors"
	"github.com/pribylovaa/research-gateway/internal/gateway"
	"github.com/pribylovaa/research-gateway/internal/identity"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToHTTP_BaseMapping(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"invalid_argument", status.Error(codes.InvalidArgument, "x"), http.StatusBadRequest, "invalid_argument"},
		{"not_found", status.Error(codes.NotFound, "x"), http.StatusNotFound, "not_found"},
		{"already_exists", status.Error(codes.AlreadyExists, "x"), http.StatusConflict, "already_exists"},
		{"failed_prec", status.Error(codes.FailedPrecondition, "x"), http.StatusPreconditionFailed, "failed_precondition"},
		{"unauth", status.Error(codes.Unauthenticated, "x"), http.StatusUnauthorized, "unauthenticated"},
		{"perm_denied", status.Error(codes.PermissionDenied, "x"), http.StatusForbidden, "permission_denied"},
		{"res_exhausted", status.Error(codes.ResourceExhausted, "x"), http.StatusTooManyRequests, "resource_exhausted"},
		{"canceled", status.Error(codes.Canceled, "x"), StatusClientClosedRequest, "canceled"},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"unavailable", status.Error(codes.Unavailable, "x"), http.StatusServiceUnavailable, "unavailable"},
		{"unimplemented", status.Error(codes.Unimplemented, "x"), http.StatusNotImplemented, "unimplemented"},
		{"internal", status.Error(codes.Internal, "x"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_GatewayErrors(t *testing.T) {
	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
	}{
		{"logged_out", gateway.ErrLoggedOut, http.StatusUnauthorized, "logged_out"},
		{"logged_out_wrapped", fmt.Errorf("%w: %w", gateway.ErrLoggedOut, context.DeadlineExceeded), http.StatusUnauthorized, "logged_out"},
		{"after_refresh", &gateway.UpstreamError{Status: http.StatusUnauthorized, Err: gateway.ErrUnauthorizedAfterRefresh}, http.StatusUnauthorized, "unauthenticated"},
		{"rejected_login", fmt.Errorf("identity.Client.Login: %w", identity.ErrRejected), http.StatusUnauthorized, "invalid_credentials"},
		{"bad_identity_response", identity.ErrBadResponse, http.StatusBadGateway, "bad_gateway"},
		{"upstream_404", &gateway.UpstreamError{Status: http.StatusNotFound}, http.StatusNotFound, "not_found"},
		{"upstream_422", &gateway.UpstreamError{Status: http.StatusUnprocessableEntity}, http.StatusUnprocessableEntity, "upstream_rejected"},
		{"upstream_500", &gateway.UpstreamError{Status: http.StatusInternalServerError}, http.StatusBadGateway, "bad_gateway"},
		{"upstream_transport", &gateway.UpstreamError{Err: fmt.Errorf("dial tcp: refused")}, http.StatusBadGateway, "bad_gateway"},
		{"upstream_grpc", &gateway.UpstreamError{Err: status.Error(codes.NotFound, "gene")}, http.StatusNotFound, "not_found"},
		{"ctx_canceled", context.Canceled, StatusClientClosedRequest, "canceled"},
		{"ctx_deadline", fmt.Errorf("op: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"invalid_request", fmt.Errorf("decode: %w", ErrInvalidRequest), http.StatusBadRequest, "invalid_argument"},
		{"api_key", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestToHTTP_MessageDoesNotLeakDetails(t *testing.T) {
	_, resp := ToHTTP(&gateway.UpstreamError{Status: http.StatusBadRequest, Body: []byte(`{"secret":"x"}`)})
	require.NotContains(t, resp.Error.Message, "secret")
}

func TestWriteError_RequestIDFromContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/gene/42", nil)
	r = r.WithContext(context.WithValue(r.Context(), interceptors.CtxRequestID, "rid-ctx"))
	r.Header.Set("X-Request-Id", "rid-header")
	rr := httptest.NewRecorder()

	WriteError(rr, r, gateway.ErrLoggedOut)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "logged_out", body.Error.Code)
	require.Equal(t, "rid-ctx", body.Error.RequestID)
}

func TestWriteError_RequestIDFromHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "rid-header")
	rr := httptest.NewRecorder()

	WriteError(rr, r, status.Error(codes.NotFound, "x"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "rid-header", body.Error.RequestID)
}
