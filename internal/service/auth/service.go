package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/oauth"
	"github.com/jwalitptl/medinfo-api/internal/repository"
	"github.com/jwalitptl/medinfo-api/pkg/auth"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/messaging"
	"github.com/jwalitptl/medinfo-api/pkg/security"
)

const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
)

type Service struct {
	userRepo  repository.UserRepository
	jwtSvc    auth.JWTService
	hasher    security.PasswordHasher
	verifiers map[string]oauth.Verifier
	publisher messaging.Publisher
	logger    zerolog.Logger
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher,
	verifiers map[string]oauth.Verifier, publisher messaging.Publisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if verifiers == nil {
		verifiers = map[string]oauth.Verifier{}
	}
	return &Service{
		userRepo:  userRepo,
		jwtSvc:    jwtSvc,
		hasher:    hasher,
		verifiers: verifiers,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, errors.Validation("All fields are required")
	}
	if len(req.Password) < security.MinPasswordLen {
		return nil, errors.Validation(fmt.Sprintf("Password must be at least %d characters", security.MinPasswordLen))
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, errors.Conflict(msgUserExists, nil)
	}
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Provider:     model.ProviderLocal,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			return nil, errors.Conflict(msgUserExists, err)
		}
		return nil, err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Msg("user registered")
	s.publishRegistered(ctx, user)

	return s.respond(user)
}

// Login fails with the same message for unknown emails, wrong passwords
// and accounts that only sign in through an identity provider.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, errors.Validation("Email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Auth(msgInvalidCredentials)
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, errors.Auth(msgInvalidCredentials)
	}
	return s.respond(user)
}

// LoginWithProvider verifies a Google credential or Facebook access token,
// creating the account on first sign-in.
func (s *Service) LoginWithProvider(ctx context.Context, provider, token string) (*model.AuthResponse, error) {
	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("%s sign-in is not enabled", provider))
	}
	profile, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(profile.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return s.respond(user)
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user = &model.User{
		Name:     name,
		Email:    email,
		Provider: profile.Provider,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, errors.ErrConflict) {
			return nil, err
		}
		// Another sign-in created the account first.
		user, err = s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return s.respond(user)
	}
	s.logger.Info().Str("user_id", user.ID.String()).Str("provider", user.Provider).Msg("user registered")
	s.publishRegistered(ctx, user)
	return s.respond(user)
}

// Me returns the account behind a validated token subject.
func (s *Service) Me(ctx context.Context, claims *model.TokenClaims) (*model.PublicUser, error) {
	id, err := parseSubject(claims)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}
	user, err := s.userRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized(err)
		}
		return nil, err
	}
	return user.Public(), nil
}

func (s *Service) respond(user *model.User) (*model.AuthResponse, error) {
	token, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.AuthResponse{User: user.Public(), Token: token}, nil
}

func (s *Service) publishRegistered(ctx context.Context, user *model.User) {
	if err := s.publisher.Publish(ctx, model.EventUserRegistered, model.UserRegisteredPayload{
		ID:       user.ID.String(),
		Provider: user.Provider,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish user.registered")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseSubject(claims *model.TokenClaims) (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, auth.ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", auth.ErrInvalidToken)
	}
	return id, nil
}
