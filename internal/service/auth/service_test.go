package auth

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/internal/provider/oauth"
	"github.com/jwalitptl/medinfo-api/internal/repository/mocks"
	"github.com/jwalitptl/medinfo-api/pkg/auth"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
	"github.com/jwalitptl/medinfo-api/pkg/security"
)

type verifierFunc func(ctx context.Context, token string) (*model.OAuthProfile, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (*model.OAuthProfile, error) {
	return f(ctx, token)
}

type capturePublisher struct{ events []string }

func (p *capturePublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.events = append(p.events, eventType)
	return nil
}

func setup(t *testing.T, verifiers map[string]oauth.Verifier) (*Service, *mocks.UserRepository, auth.JWTService, *capturePublisher) {
	t.Helper()
	repo := new(mocks.UserRepository)
	jwtSvc := auth.NewJWTService("test-secret", "medinfo-test", time.Hour)
	pub := &capturePublisher{}
	svc := NewService(repo, jwtSvc, security.NewBcryptHasher(bcrypt.MinCost), verifiers, pub, zerolog.Nop())
	return svc, repo, jwtSvc, pub
}

func notFound() error { return errors.NotFound("user", nil) }

func TestRegister(t *testing.T) {
	svc, repo, jwtSvc, pub := setup(t, nil)
	repo.On("GetByEmail", mock.Anything, "asha@example.com").Return(nil, notFound()).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "asha@example.com" && u.Name == "Asha" && u.Provider == model.ProviderLocal &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = uuid.New()
	}).Return(nil).Once()

	resp, err := svc.Register(context.Background(), &model.RegisterRequest{
		Name:     " Asha ",
		Email:    "  Asha@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.ID)

	claims, err := jwtSvc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.Subject)
	assert.Equal(t, []string{model.EventUserRegistered}, pub.events)
	repo.AssertExpectations(t)
}

func TestRegister_ExistingEmail(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	repo.On("GetByEmail", mock.Anything, "asha@example.com").Return(&model.User{Email: "asha@example.com"}, nil).Once()

	_, err := svc.Register(context.Background(), &model.RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Equal(t, "User already exists", err.(*errors.AppError).Message)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_InsertRace(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	repo.On("GetByEmail", mock.Anything, "asha@example.com").Return(nil, notFound()).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.Conflict("User already exists", nil)).Once()

	_, err := svc.Register(context.Background(), &model.RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestRegister_Validation(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	for _, req := range []*model.RegisterRequest{
		{Name: " ", Email: "a@b.c", Password: "secret1"},
		{Name: "A", Email: "", Password: "secret1"},
		{Name: "A", Email: "a@b.c", Password: ""},
		{Name: "A", Email: "a@b.c", Password: "123"},
	} {
		_, err := svc.Register(context.Background(), req)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	}
	repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	hash, err := security.NewBcryptHasher(bcrypt.MinCost).Hash("secret1")
	require.NoError(t, err)
	user := &model.User{Base: model.Base{ID: uuid.New()}, Name: "Asha", Email: "asha@example.com", PasswordHash: hash}
	repo.On("GetByEmail", mock.Anything, "asha@example.com").Return(user, nil)

	resp, err := svc.Login(context.Background(), &model.LoginRequest{Email: "ASHA@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), resp.User.ID)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(context.Background(), &model.LoginRequest{Email: "asha@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuth))
	assert.Equal(t, "Invalid credentials", err.Error())
}

func TestLogin_UnknownAndProviderOnlyAccounts(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	repo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, notFound())
	repo.On("GetByEmail", mock.Anything, "g@example.com").Return(&model.User{Email: "g@example.com", Provider: model.ProviderGoogle}, nil)

	for _, email := range []string{"nobody@example.com", "g@example.com"} {
		_, err := svc.Login(context.Background(), &model.LoginRequest{Email: email, Password: "whatever"})
		require.Error(t, err)
		assert.Equal(t, "Invalid credentials", err.Error())
	}
}

func TestLogin_StoreFailure(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	repo.On("GetByEmail", mock.Anything, "a@example.com").Return(nil, stderrors.New("db down"))

	_, err := svc.Login(context.Background(), &model.LoginRequest{Email: "a@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrAuth))
}

func TestLoginWithProvider_CreatesUser(t *testing.T) {
	google := verifierFunc(func(_ context.Context, token string) (*model.OAuthProfile, error) {
		assert.Equal(t, "id-token", token)
		return &model.OAuthProfile{Provider: model.ProviderGoogle, Subject: "g-1", Email: "Ravi@Example.com"}, nil
	})
	svc, repo, _, pub := setup(t, map[string]oauth.Verifier{model.ProviderGoogle: google})
	repo.On("GetByEmail", mock.Anything, "ravi@example.com").Return(nil, notFound()).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.PasswordHash == "" && u.Provider == model.ProviderGoogle && u.Name == "ravi"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = uuid.New()
	}).Return(nil).Once()

	resp, err := svc.LoginWithProvider(context.Background(), model.ProviderGoogle, "id-token")
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, []string{model.EventUserRegistered}, pub.events)
	repo.AssertExpectations(t)
}

func TestLoginWithProvider_ExistingUser(t *testing.T) {
	fb := verifierFunc(func(context.Context, string) (*model.OAuthProfile, error) {
		return &model.OAuthProfile{Provider: model.ProviderFacebook, Email: "asha@example.com", Name: "Asha"}, nil
	})
	svc, repo, _, _ := setup(t, map[string]oauth.Verifier{model.ProviderFacebook: fb})
	existing := &model.User{Base: model.Base{ID: uuid.New()}, Email: "asha@example.com", Name: "Asha"}
	repo.On("GetByEmail", mock.Anything, "asha@example.com").Return(existing, nil).Once()

	resp, err := svc.LoginWithProvider(context.Background(), model.ProviderFacebook, "token")
	require.NoError(t, err)
	assert.Equal(t, existing.ID.String(), resp.User.ID)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginWithProvider_Errors(t *testing.T) {
	bad := verifierFunc(func(context.Context, string) (*model.OAuthProfile, error) {
		return nil, errors.Auth("Invalid Google token")
	})
	svc, _, _, _ := setup(t, map[string]oauth.Verifier{model.ProviderGoogle: bad})

	_, err := svc.LoginWithProvider(context.Background(), model.ProviderGoogle, "x")
	assert.True(t, errors.Is(err, errors.ErrAuth))

	_, err = svc.LoginWithProvider(context.Background(), model.ProviderFacebook, "x")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestMe(t *testing.T) {
	svc, repo, _, _ := setup(t, nil)
	id := uuid.New()
	repo.On("Get", mock.Anything, id).Return(&model.User{Base: model.Base{ID: id}, Name: "Asha", Email: "asha@example.com"}, nil).Once()

	claims := &model.TokenClaims{}
	claims.Subject = id.String()
	u, err := svc.Me(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, &model.PublicUser{ID: id.String(), Name: "Asha", Email: "asha@example.com"}, u)

	claims.Subject = "not-a-uuid"
	_, err = svc.Me(context.Background(), claims)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
