package reset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	services "github.com/shopnest/user-service/internal/services/user"
)

// Мок сервиса с методом ResetPassword
type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestResetHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockErr        error
		mockExpected   bool
		wantStatusCode int
		wantError      string
		wantStatus     string
	}{
		{
			name: "valid reset",
			requestBody: Request{
				Token:       "token-1",
				NewPassword: "newpassword",
			},
			mockExpected:   true,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request body",
			wantStatus:     "Error",
		},
		{
			name: "validation error - short password",
			requestBody: Request{
				Token:       "token-1",
				NewPassword: "abc",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "field NewPassword is too short",
			wantStatus:     "Error",
		},
		{
			name: "invalid token",
			requestBody: Request{
				Token:       "token-1",
				NewPassword: "newpassword",
			},
			mockErr:        services.ErrInvalidToken,
			mockExpected:   true,
			wantStatusCode: http.StatusUnauthorized,
			wantError:      "invalid or already used token",
			wantStatus:     "Error",
		},
		{
			name: "expired token",
			requestBody: Request{
				Token:       "token-1",
				NewPassword: "newpassword",
			},
			mockErr:        services.ErrTokenExpired,
			mockExpected:   true,
			wantStatusCode: http.StatusGone,
			wantError:      "reset token expired",
			wantStatus:     "Error",
		},
		{
			name: "service error",
			requestBody: Request{
				Token:       "token-1",
				NewPassword: "newpassword",
			},
			mockErr:        errors.New("db down"),
			mockExpected:   true,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not reset password",
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			if tt.mockExpected {
				serviceMock.On("ResetPassword", mock.Anything, "token-1", "newpassword").
					Return(tt.mockErr).Once()
			}

			var bodyBytes []byte
			var err error
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/users/reset-password", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			err = json.NewDecoder(rec.Body).Decode(&got)
			assert.NoError(t, err)

			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantError != "" {
				errStr, ok := got["error"].(string)
				assert.True(t, ok)
				assert.Equal(t, tt.wantError, errStr)
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
