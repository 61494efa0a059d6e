package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"studio/config"
	"studio/infras/jwt"
	"studio/infras/otel"
	adminModel "studio/internal/domains/admin/model"
	adminRepo "studio/internal/domains/admin/repository"
	"studio/internal/domains/auth/model/dto"
	"studio/shared"
	"studio/shared/cache"
	"studio/shared/constant"
	gDto "studio/shared/dto"
	"studio/shared/failure"
	"studio/shared/password"
	"studio/shared/timezone"

	"github.com/rs/zerolog/log"
)

const cacheRevokedToken = "auth:revoked"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingSession     = errors.New("no active session")
	ErrMissingSeedAdmin   = errors.New("admin username and password must be configured")
)

type Auth interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (dto.RefreshTokenResponse, error)
	Logout(ctx context.Context) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	SeedAdmin(ctx context.Context) error
}

type serviceImpl struct {
	adminRepo  adminRepo.Admin
	cfg        *config.Config
	cache      cache.RedisCache
	otel       otel.Otel
	jwtService jwt.JWT
}

func New(adminRepo adminRepo.Admin, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, jwt jwt.JWT) Auth {
	return &serviceImpl{
		adminRepo:  adminRepo,
		cfg:        cfg,
		cache:      cache,
		otel:       otel,
		jwtService: jwt,
	}
}

func usernameFilter(username string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    adminModel.FieldUsername,
				Operator: gDto.FilterOperatorEq,
				Value:    username,
				Table:    adminModel.TableName,
			},
		},
	}
}

func (s *serviceImpl) Login(ctx context.Context, req dto.LoginRequest) (res dto.LoginResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Login")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.Normalize()
	filter := usernameFilter(req.Username)

	admin, err := s.adminRepo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get admin")

		return res, fmt.Errorf("failed to get admin: %w", err)
	}

	if admin.ID == constant.Empty {
		log.Warn().Str("username", req.Username).Msg("login attempt with unknown username")

		return res, failure.Unauthorized(ErrInvalidCredentials.Error())
	}

	if err := password.Verify(req.Password, admin.PasswordHash); err != nil {
		log.Warn().Str("username", req.Username).Msg("login attempt with wrong password")

		return res, failure.Unauthorized(ErrInvalidCredentials.Error())
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(admin.ID, admin.Username, constant.RoleAdmin)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate tokens")

		return res, fmt.Errorf("failed to generate tokens: %w", err)
	}

	updatedFields := shared.TransformFields(dto.UpdateLastLoginRequest{LastLogin: timezone.Now()}, admin.Username)
	if err := s.adminRepo.Update(ctx, updatedFields, filter); err != nil {
		log.Warn().Err(err).Str("admin_id", admin.ID).Msg("failed to update last login")
	}

	res.FromTokenPair(tokenPair)

	return res, nil
}

func (s *serviceImpl) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (res dto.RefreshTokenResponse, err error) {
	_, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".RefreshToken")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	tokenPair, err := s.jwtService.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh tokens")

		return res, failure.Unauthorized("invalid refresh token")
	}

	res.FromTokenPair(tokenPair)

	return res, nil
}

// Logout revokes the access token carried by ctx until it would have expired anyway.
func (s *serviceImpl) Logout(ctx context.Context) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Logout")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	tokenID, _ := ctx.Value(constant.ContextKeyTokenID).(string)
	if tokenID == constant.Empty {
		return failure.Unauthorized(ErrMissingSession.Error())
	}

	expiry, _ := ctx.Value(constant.ContextKeyTokenExp).(time.Time)

	ttl := int(math.Ceil(expiry.Sub(timezone.Now()).Seconds()))
	if ttl <= 0 {
		return nil
	}

	if err = s.cache.Save(ctx, shared.BuildCacheKey(cacheRevokedToken, tokenID), tokenID, ttl); err != nil {
		log.Error().Err(err).Str("token_id", tokenID).Msg("failed to revoke token")

		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

func (s *serviceImpl) IsRevoked(ctx context.Context, tokenID string) (revoked bool, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".IsRevoked")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	revoked, err = s.cache.Exists(ctx, shared.BuildCacheKey(cacheRevokedToken, tokenID))
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}

	return revoked, nil
}

// SeedAdmin creates the configured admin account when no admin exists yet.
func (s *serviceImpl) SeedAdmin(ctx context.Context) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".SeedAdmin")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	total, err := s.adminRepo.Count(ctx, gDto.FilterGroup{})
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}

	if total > 0 {
		log.Info().Int("total", total).Msg("admins already seeded")

		return nil
	}

	if s.cfg.Admin.Username == constant.Empty || s.cfg.Admin.Password == constant.Empty {
		return ErrMissingSeedAdmin
	}

	hashedPassword, err := password.Hash(s.cfg.Admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if err = s.adminRepo.Insert(ctx, dto.NewAdmin(s.cfg.Admin.Username, hashedPassword)); err != nil {
		log.Error().Err(err).Msg("failed to seed admin")

		return fmt.Errorf("failed to seed admin: %w", err)
	}

	log.Info().Str("username", s.cfg.Admin.Username).Msg("admin seeded")

	return nil
}
