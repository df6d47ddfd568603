// auth.go — middleware определения идентичности запроса.
// Источники идентичности в порядке приоритета:
//  1. HS256-токен от API Gateway (Authorization: Bearer) — claims sub и roles.
//  2. Доверенные заголовки X-Remote-User / X-User-Roles (dev-режим
//     или gateway без подписи).
//  3. Анонимный пользователь.
//
// Эффективный набор ролей — объединение ролей источника идентичности,
// ролей по умолчанию из конфигурации и привязок из таблицы user_roles.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/contractflow/internal/api/errors"
	"github.com/bigkaa/contractflow/internal/domain/model"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyIdentity — идентичность запроса в контексте.
const ContextKeyIdentity contextKey = "identity"

// AnonymousUser — имя пользователя при отсутствии идентификации.
const AnonymousUser = "anonymous"

// RolesProvider — получение привязок ролей пользователя из БД.
// Реализуется repository.RoleRepository.
type RolesProvider interface {
	RolesForUser(ctx context.Context, user string) ([]string, error)
}

// gatewayClaims — claims токена идентификации от API Gateway.
type gatewayClaims struct {
	jwt.RegisteredClaims
	// Roles — роли пользователя, проставленные gateway.
	Roles []string `json:"roles,omitempty"`
}

// IdentityResolver — middleware определения идентичности.
type IdentityResolver struct {
	allowDevHeaders bool
	gatewaySecret   string
	defaultRoles    []string
	rolesProvider   RolesProvider
	logger          *slog.Logger
}

// NewIdentityResolver создаёт middleware определения идентичности.
// gatewaySecret — секрет HS256-токена gateway, пустая строка отключает режим.
// rolesProvider — привязки ролей из БД (может быть nil).
func NewIdentityResolver(allowDevHeaders bool, gatewaySecret string, defaultRoles []string, rolesProvider RolesProvider, logger *slog.Logger) *IdentityResolver {
	return &IdentityResolver{
		allowDevHeaders: allowDevHeaders,
		gatewaySecret:   gatewaySecret,
		defaultRoles:    defaultRoles,
		rolesProvider:   rolesProvider,
		logger:          logger.With(slog.String("component", "identity")),
	}
}

// Middleware возвращает HTTP middleware, помещающее идентичность в контекст.
// Невалидный Bearer-токен при включённом gateway-режиме — 401;
// отсутствие идентификации — анонимный пользователь.
func (i *IdentityResolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, roles, ok := i.resolve(w, r)
			if !ok {
				return
			}

			identity := i.buildIdentity(r.Context(), user, roles)
			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolve извлекает пользователя и роли из запроса.
// ok == false — ответ об ошибке уже записан.
func (i *IdentityResolver) resolve(w http.ResponseWriter, r *http.Request) (user string, roles []string, ok bool) {
	// Gateway-токен имеет приоритет над заголовками
	if i.gatewaySecret != "" {
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return "", nil, false
			}

			claims := &gatewayClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims,
				func(*jwt.Token) (any, error) { return []byte(i.gatewaySecret), nil },
				jwt.WithValidMethods([]string{"HS256"}),
				jwt.WithExpirationRequired(),
			)
			if err != nil || !token.Valid || claims.Subject == "" {
				i.logger.Debug("Валидация gateway-токена не пройдена",
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return "", nil, false
			}
			return claims.Subject, claims.Roles, true
		}
	}

	if i.allowDevHeaders {
		if remoteUser := strings.TrimSpace(r.Header.Get("X-Remote-User")); remoteUser != "" {
			return remoteUser, splitRoles(r.Header.Get("X-User-Roles")), true
		}
	}

	return AnonymousUser, nil, true
}

// buildIdentity объединяет роли источника, роли по умолчанию
// и привязки из БД. Ошибка чтения привязок не блокирует запрос.
func (i *IdentityResolver) buildIdentity(ctx context.Context, user string, roles []string) model.Identity {
	all := make([]string, 0, len(roles)+len(i.defaultRoles))
	all = append(all, roles...)
	all = append(all, i.defaultRoles...)

	if i.rolesProvider != nil && user != AnonymousUser {
		persisted, err := i.rolesProvider.RolesForUser(ctx, user)
		if err != nil {
			i.logger.Warn("Ошибка получения ролей пользователя",
				slog.String("user", user),
				slog.String("error", err.Error()),
			)
		} else {
			all = append(all, persisted...)
		}
	}

	return model.NewIdentity(user, all...)
}

// splitRoles разбирает заголовок со списком ролей через запятую.
func splitRoles(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	var roles []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// IdentityFromContext извлекает идентичность из контекста запроса.
// Возвращает анонимную идентичность, если middleware не отработал.
func IdentityFromContext(ctx context.Context) model.Identity {
	identity, ok := ctx.Value(ContextKeyIdentity).(model.Identity)
	if !ok {
		return model.NewIdentity(AnonymousUser)
	}
	return identity
}
