package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"strings"

	"studio/config"
	"studio/infras/jwt"
	"studio/infras/otel"
	"studio/permissions"
	"studio/shared/constant"
	"studio/shared/failure"
	"studio/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// TokenRevocation reports whether an access token was revoked by logging out.
type TokenRevocation interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Auth interface {
	Auth(http.Handler) http.Handler
}

type Role interface {
	RBAC(http.Handler) http.Handler
}

type AuthRole interface {
	Auth
	Role
}

// caller is who a request acts as once authenticated.
type caller struct {
	userID   string
	username string
	role     string
	claims   *jwt.Claims
}

func (c caller) into(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, constant.ContextKeyUserName, c.username)
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, c.role)

	if c.userID != "" {
		ctx = context.WithValue(ctx, constant.ContextKeyUserID, c.userID)
	}

	if c.claims != nil {
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, c.claims.TokenID)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenExp, c.claims.Expiry())
	}

	return ctx
}

type authRoleImpl struct {
	jwtService jwt.JWT
	revocation TokenRevocation
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, revocation TokenRevocation, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		revocation: revocation,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

// routeOf returns the matched chi pattern without a trailing slash, so "/v1/rooms/" and
// "/v1/rooms" share one permission entry.
func routeOf(request *http.Request) string {
	pattern := request.URL.Path
	if rctx := chi.RouteContext(request.Context()); rctx != nil && rctx.RoutePattern() != "" {
		pattern = rctx.RoutePattern()
	}

	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}

	return pattern
}

func (m *authRoleImpl) findPermission(request *http.Request) permissions.Permission {
	if m.permission == nil {
		return permissions.Permission{}
	}

	return m.permission.FindPermissions(routeOf(request), request.Method)
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, jwt.ErrInvalidClaim):
		return "Invalid token claims"
	default:
		return "Invalid token"
	}
}

// fromAPIKey treats a request carrying the configured internal key as the system user.
func (m *authRoleImpl) fromAPIKey(apiKey string) (caller, error) {
	if m.cfg.App.APIKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.cfg.App.APIKey)) != 1 {
		return caller{}, failure.ForbiddenError
	}

	return caller{username: constant.ContextSystem, role: constant.RoleAdmin}, nil
}

func (m *authRoleImpl) fromBearer(ctx context.Context, header string) (caller, error) {
	tokenString, err := jwt.ExtractTokenFromHeader(header)
	if err != nil {
		return caller{}, failure.Unauthorized(err.Error())
	}

	claims, err := m.jwtService.ValidateToken(tokenString, jwt.AccessToken)
	if err != nil {
		return caller{}, failure.Unauthorized(tokenMessage(err))
	}

	if claims.UserID == "" || claims.Username == "" || claims.TokenID == "" {
		log.Error().Str("token_id", claims.TokenID).Msg("token is missing required claims")

		return caller{}, failure.Unauthorized("Invalid token claims")
	}

	revoked, err := m.revocation.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		log.Warn().Err(err).Str("token_id", claims.TokenID).Msg("failed to check token revocation")
	}

	if revoked {
		return caller{}, failure.Unauthorized("Token has been revoked")
	}

	return caller{userID: claims.UserID, username: claims.Username, role: claims.Role, claims: claims}, nil
}

// Auth resolves the caller from the X-API-Key header or the bearer token and stores it in
// the request context. Routes marked skip pass through untouched.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       routeOf(request),
			"http.method":     request.Method,
		})

		if m.findPermission(request).Skip {
			next.ServeHTTP(writer, request)

			return
		}

		var (
			who caller
			err error
		)

		if apiKey := request.Header.Get(constant.RequestHeaderAPIKey); apiKey != "" {
			scope.SetAttribute("http.source", "internal")
			who, err = m.fromAPIKey(apiKey)
		} else {
			who, err = m.fromBearer(ctx, request.Header.Get(constant.RequestHeaderAuthorization))
		}

		if err != nil {
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		next.ServeHTTP(writer, request.WithContext(who.into(ctx)))
	})
}

// RBAC checks the caller's role against the permission entry of the matched route.
// Routes without an entry are denied. Requires Auth to run first.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "rbac.middleware")
		defer scope.End()

		if m.permission == nil {
			scope.TraceError(failure.ForbiddenError)
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		permission := m.findPermission(request)
		if m.permission.Skip || permission.Skip {
			next.ServeHTTP(writer, request)

			return
		}

		userRole, _ := ctx.Value(constant.ContextKeyUserRole).(string)

		if !slices.Contains(permission.Permissions, userRole) {
			scope.TraceError(failure.ForbiddenError)
			scope.SetAttributes(map[string]any{
				"user_role":     userRole,
				"allowed_roles": permission.Permissions,
			})

			response.WithError(writer, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request)
	})
}
