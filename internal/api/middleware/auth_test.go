package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// fakeRolesProvider — привязки ролей для тестов.
type fakeRolesProvider struct {
	roles map[string][]string
}

func (f *fakeRolesProvider) RolesForUser(_ context.Context, user string) ([]string, error) {
	return f.roles[user], nil
}

// captureIdentity возвращает handler, сохраняющий идентичность запроса.
func captureIdentity(got *model.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// signToken подписывает HS256-токен gateway.
func signToken(t *testing.T, secret, sub string, roles []string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"roles": roles,
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Подпись токена: %v", err)
	}
	return signed
}

func TestDevHeaders(t *testing.T) {
	resolver := NewIdentityResolver(true, "", nil, nil, testLogger())

	var got model.Identity
	handler := resolver.Middleware()(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.Header.Set("X-Remote-User", "alice")
	req.Header.Set("X-User-Roles", "Customer Service, Technical")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if got.User != "alice" {
		t.Errorf("User = %q, хотели alice", got.User)
	}
	if !got.HasRole("Customer Service") || !got.HasRole("Technical") {
		t.Errorf("Roles = %v", got.Roles)
	}
}

func TestDevHeadersDisabled(t *testing.T) {
	resolver := NewIdentityResolver(false, "", nil, nil, testLogger())

	var got model.Identity
	handler := resolver.Middleware()(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.Header.Set("X-Remote-User", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Заголовки игнорируются — анонимный пользователь
	if got.User != AnonymousUser {
		t.Errorf("User = %q, хотели %q", got.User, AnonymousUser)
	}
}

func TestGatewayToken(t *testing.T) {
	const secret = "test-secret"
	resolver := NewIdentityResolver(false, secret, nil, nil, testLogger())

	var got model.Identity
	handler := resolver.Middleware()(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, "bob", []string{"Legal"}, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d", rec.Code)
	}
	if got.User != "bob" || !got.HasRole("Legal") {
		t.Errorf("идентичность = %+v", got)
	}
}

func TestGatewayTokenInvalid(t *testing.T) {
	const secret = "test-secret"
	resolver := NewIdentityResolver(false, secret, nil, nil, testLogger())
	handler := resolver.Middleware()(captureIdentity(&model.Identity{}))

	tests := []struct {
		name  string
		token string
	}{
		{"чужой секрет", signToken(t, "other-secret", "bob", nil, time.Now().Add(time.Hour))},
		{"просроченный", signToken(t, secret, "bob", nil, time.Now().Add(-time.Hour))},
		{"мусор", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("статус = %d, хотели 401", rec.Code)
			}
		})
	}
}

func TestRoleMerge(t *testing.T) {
	provider := &fakeRolesProvider{roles: map[string][]string{
		"alice": {"Legal"},
	}}
	resolver := NewIdentityResolver(true, "", []string{"Commercial"}, provider, testLogger())

	var got model.Identity
	handler := resolver.Middleware()(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	req.Header.Set("X-Remote-User", "alice")
	req.Header.Set("X-User-Roles", "Technical")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Объединение: заголовок + роли по умолчанию + привязки из БД
	for _, role := range []string{"Technical", "Commercial", "Legal"} {
		if !got.HasRole(role) {
			t.Errorf("отсутствует роль %q: %v", role, got.Roles)
		}
	}
}

func TestAnonymousFallback(t *testing.T) {
	resolver := NewIdentityResolver(true, "", nil, nil, testLogger())

	var got model.Identity
	handler := resolver.Middleware()(captureIdentity(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got.User != AnonymousUser {
		t.Errorf("User = %q, хотели %q", got.User, AnonymousUser)
	}
	if len(got.Roles) != 0 {
		t.Errorf("Roles = %v, хотели пусто", got.Roles)
	}
}
