package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/gopherreset/internal/apperrors"
	"github.com/nkiryanov/gopherreset/internal/logger"
	"github.com/nkiryanov/gopherreset/internal/models"
)

type stubAuth struct {
	user       models.User
	err        error
	logoutErr  error
	loggedOut  []models.User
	registered []string
}

func (s *stubAuth) Register(_ context.Context, email string, _ string) (models.IssuedToken, error) {
	s.registered = append(s.registered, email)
	return models.IssuedToken{Value: "token"}, s.err
}

func (s *stubAuth) Login(_ context.Context, _ string, _ string) (models.IssuedToken, error) {
	return models.IssuedToken{Value: "token"}, s.err
}

func (s *stubAuth) Logout(_ context.Context, user models.User) error {
	s.loggedOut = append(s.loggedOut, user)
	return s.logoutErr
}

func (s *stubAuth) SetAuthToken(w http.ResponseWriter, token models.IssuedToken) {
	w.Header().Set("Authorization", "Bearer "+token.Value)
}

func (s *stubAuth) Authenticate(_ context.Context, r *http.Request) (models.User, error) {
	if r.Header.Get("Authorization") != "Bearer token" {
		return models.User{}, apperrors.ErrTokenInvalid
	}
	return s.user, nil
}

type resetCall struct {
	email, token, password string
}

type stubReset struct {
	err   error
	calls []resetCall
}

func (s *stubReset) RequestReset(_ context.Context, email string) error {
	s.calls = append(s.calls, resetCall{email: email})
	return s.err
}

func (s *stubReset) ChangePasswordWithToken(_ context.Context, email string, token string, newPassword string) error {
	s.calls = append(s.calls, resetCall{email: email, token: token, password: newPassword})
	return s.err
}

type response struct {
	code   int
	body   string
	header http.Header
}

func do(t *testing.T, h http.Handler, method string, target string, body string, header http.Header) response {
	t.Helper()

	srv := httptest.NewServer(h)
	defer srv.Close()

	req, err := http.NewRequest(method, srv.URL+target, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return response{code: resp.StatusCode, body: string(b), header: resp.Header}
}

func resetQuery(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return q.Encode()
}

func TestRouter_ResetPassword(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		serviceErr   error
		expectedCode int
		expectedBody string
		expectedCall resetCall
	}{
		{
			name:         "ok",
			query:        "email=a%40x.com",
			expectedCode: http.StatusOK,
			expectedBody: `{"message": "password reset link sent to the email provided"}`,
			expectedCall: resetCall{email: "a@x.com"},
		},
		{
			name:         "user not found",
			query:        "email=a%40x.com",
			serviceErr:   apperrors.ErrUserNotFound,
			expectedCode: http.StatusConflict,
			expectedBody: `{"error": "service_error", "message": "user not found"}`,
			expectedCall: resetCall{email: "a@x.com"},
		},
		{
			name:         "email not confirmed",
			query:        "email=a%40x.com",
			serviceErr:   apperrors.ErrEmailNotConfirmed,
			expectedCode: http.StatusConflict,
			expectedBody: `{"error": "service_error", "message": "email not confirmed"}`,
			expectedCall: resetCall{email: "a@x.com"},
		},
		{
			name:         "mailer failed",
			query:        "email=a%40x.com",
			serviceErr:   errors.New("smtp is down"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error": "service_error", "message": "Internal server error"}`,
			expectedCall: resetCall{email: "a@x.com"},
		},
		{
			name:         "no email is user not found",
			query:        "",
			serviceErr:   apperrors.ErrUserNotFound,
			expectedCode: http.StatusConflict,
			expectedBody: `{"error": "service_error", "message": "user not found"}`,
			expectedCall: resetCall{},
		},
		{
			name:         "malformed email is user not found",
			query:        "email=nope",
			serviceErr:   apperrors.ErrUserNotFound,
			expectedCode: http.StatusConflict,
			expectedBody: `{"error": "service_error", "message": "user not found"}`,
			expectedCall: resetCall{email: "nope"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset := &stubReset{err: tt.serviceErr}
			h := NewRouter(&stubAuth{}, reset, logger.NewNoOpLogger())

			resp := do(t, h, http.MethodPost, "/api/user/resetPassword?"+tt.query, "", nil)

			require.Equalf(t, tt.expectedCode, resp.code, "not expected code. Body: %s", resp.body)
			require.JSONEq(t, tt.expectedBody, resp.body)
			require.Equal(t, []resetCall{tt.expectedCall}, reset.calls)
		})
	}

	t.Run("get not allowed", func(t *testing.T) {
		h := NewRouter(&stubAuth{}, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodGet, "/api/user/resetPassword?email=a%40x.com", "", nil)

		require.Equal(t, http.StatusMethodNotAllowed, resp.code)
	})
}

func TestRouter_ChangePasswordWithToken(t *testing.T) {
	valid := map[string]string{"email": "a@x.com", "passwordResetToken": "a.b.c", "newPassword": "new-password"}

	with := func(key, value string) map[string]string {
		params := map[string]string{}
		for k, v := range valid {
			params[k] = v
		}
		if value == "" {
			delete(params, key)
		} else {
			params[key] = value
		}
		return params
	}

	tests := []struct {
		name         string
		params       map[string]string
		serviceErr   error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "ok",
			params:       valid,
			expectedCode: http.StatusOK,
			expectedBody: `{"message": "password changed"}`,
		},
		{
			name:         "user not found",
			params:       valid,
			serviceErr:   apperrors.ErrUserNotFound,
			expectedCode: http.StatusConflict,
			expectedBody: `{"error": "service_error", "message": "user not found"}`,
		},
		{
			name:         "invalid token",
			params:       valid,
			serviceErr:   apperrors.ErrTokenInvalid,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error": "service_error", "message": "invalid password reset token"}`,
		},
		{
			name:         "db failed",
			params:       valid,
			serviceErr:   errors.New("connection refused"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error": "service_error", "message": "Internal server error"}`,
		},
		{
			name:         "no token is invalid token",
			params:       with("passwordResetToken", ""),
			serviceErr:   apperrors.ErrTokenInvalid,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error": "service_error", "message": "invalid password reset token"}`,
		},
		{
			name:         "no email is user not found",
			params:       with("email", ""),
			serviceErr:   apperrors.ErrUserNotFound,
			expectedCode: http.StatusConflict,
			expectedBody: `{"error": "service_error", "message": "user not found"}`,
		},
		{
			name:         "no password",
			params:       with("newPassword", ""),
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error": "validation_failed", "message": "Request validation failed", "fields": {"newPassword": "This field is required"}}`,
		},
		{
			name:         "short password",
			params:       with("newPassword", "short"),
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error": "validation_failed", "message": "Request validation failed", "fields": {"newPassword": "Value is too short (minimum 8)"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset := &stubReset{err: tt.serviceErr}
			h := NewRouter(&stubAuth{}, reset, logger.NewNoOpLogger())

			resp := do(t, h, http.MethodPost, "/api/user/changePasswordWithToken?"+resetQuery(tt.params), "", nil)

			require.Equalf(t, tt.expectedCode, resp.code, "not expected code. Body: %s", resp.body)
			require.JSONEq(t, tt.expectedBody, resp.body)
			if resp.code == http.StatusBadRequest {
				require.Empty(t, reset.calls, "service should not be called on invalid request")
			} else {
				expected := resetCall{email: tt.params["email"], token: tt.params["passwordResetToken"], password: tt.params["newPassword"]}
				require.Equal(t, []resetCall{expected}, reset.calls)
			}
		})
	}
}

func TestRouter_Auth(t *testing.T) {
	authorized := http.Header{"Authorization": []string{"Bearer token"}}

	t.Run("register ok", func(t *testing.T) {
		auth := &stubAuth{}
		h := NewRouter(auth, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/register", `{"email": "a@x.com", "password": "StrongEnoughPassword"}`, nil)

		require.Equalf(t, http.StatusOK, resp.code, "not expected code. Body: %s", resp.body)
		require.JSONEq(t, `{"message": "User registered successfully"}`, resp.body)
		require.Equal(t, "Bearer token", resp.header.Get("Authorization"))
		require.Equal(t, []string{"a@x.com"}, auth.registered)
	})

	t.Run("register existed user fails", func(t *testing.T) {
		h := NewRouter(&stubAuth{err: apperrors.ErrUserAlreadyExists}, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/register", `{"email": "a@x.com", "password": "StrongEnoughPassword"}`, nil)

		require.Equal(t, http.StatusConflict, resp.code)
		require.JSONEq(t, `{"error": "service_error", "message": "User already exists"}`, resp.body)
		require.NotContains(t, resp.header, "Authorization")
	})

	t.Run("register invalid body fails", func(t *testing.T) {
		auth := &stubAuth{}
		h := NewRouter(auth, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/register", `{"email": "a@x.com", "password": "short"}`, nil)

		require.Equal(t, http.StatusBadRequest, resp.code)
		require.JSONEq(t, `{"error": "validation_failed", "message": "Request validation failed", "fields": {"password": "Value is too short (minimum 8)"}}`, resp.body)
		require.Empty(t, auth.registered)
	})

	t.Run("login ok", func(t *testing.T) {
		h := NewRouter(&stubAuth{}, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/login", `{"email": "a@x.com", "password": "pwd"}`, nil)

		require.Equal(t, http.StatusOK, resp.code)
		require.JSONEq(t, `{"message": "User logged in successfully"}`, resp.body)
		require.Equal(t, "Bearer token", resp.header.Get("Authorization"))
	})

	t.Run("login failed", func(t *testing.T) {
		h := NewRouter(&stubAuth{err: apperrors.ErrUserNotFound}, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/login", `{"email": "a@x.com", "password": "wrong"}`, nil)

		require.Equal(t, http.StatusUnauthorized, resp.code)
		require.JSONEq(t, `{"error": "service_error", "message": "User not found"}`, resp.body)
		require.NotContains(t, resp.header, "Authorization")
	})

	t.Run("me", func(t *testing.T) {
		id := uuid.New()
		h := NewRouter(&stubAuth{user: models.User{ID: id, Email: "a@x.com", EmailConfirmed: true}}, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodGet, "/api/user/me", "", authorized)

		require.Equal(t, http.StatusOK, resp.code)
		require.JSONEq(t, `{"id": "`+id.String()+`", "email": "a@x.com", "email_confirmed": true}`, resp.body)
	})

	t.Run("me unauthorized", func(t *testing.T) {
		h := NewRouter(&stubAuth{}, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodGet, "/api/user/me", "", nil)

		require.Equal(t, http.StatusUnauthorized, resp.code)
	})

	t.Run("logout", func(t *testing.T) {
		auth := &stubAuth{user: models.User{Email: "a@x.com"}}
		h := NewRouter(auth, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/logout", "", authorized)

		require.Equal(t, http.StatusOK, resp.code)
		require.JSONEq(t, `{"message": "User logged out successfully"}`, resp.body)
		require.Len(t, auth.loggedOut, 1)
		require.Equal(t, "a@x.com", auth.loggedOut[0].Email)
	})

	t.Run("logout unauthorized", func(t *testing.T) {
		auth := &stubAuth{}
		h := NewRouter(auth, &stubReset{}, logger.NewNoOpLogger())

		resp := do(t, h, http.MethodPost, "/api/user/logout", "", nil)

		require.Equal(t, http.StatusUnauthorized, resp.code)
		require.Empty(t, auth.loggedOut)
	})
}
