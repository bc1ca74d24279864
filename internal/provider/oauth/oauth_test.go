package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

func googleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id_token") {
		case "good":
			_, _ = w.Write([]byte(`{"aud":"client-1","sub":"g-1","email":"a@example.com","email_verified":"true","name":"Asha"}`))
		case "other-aud":
			_, _ = w.Write([]byte(`{"aud":"client-2","sub":"g-1","email":"a@example.com","email_verified":"true"}`))
		case "unverified":
			_, _ = w.Write([]byte(`{"aud":"client-1","sub":"g-1","email":"a@example.com","email_verified":"false"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleVerifier(t *testing.T) {
	srv := googleServer(t)
	v := NewGoogleVerifier("client-1", srv.URL, srv.Client())

	p, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &model.OAuthProfile{Provider: model.ProviderGoogle, Subject: "g-1", Email: "a@example.com", Name: "Asha"}, p)

	for _, tok := range []string{"other-aud", "unverified", "garbage"} {
		_, err := v.Verify(context.Background(), tok)
		assert.True(t, errors.Is(err, errors.ErrAuth), tok)
	}

	_, err = v.Verify(context.Background(), " ")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestFacebookVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))
		switch r.URL.Query().Get("access_token") {
		case "good":
			assert.Equal(t, appSecretProof("good", "shh"), r.URL.Query().Get("appsecret_proof"))
			_, _ = w.Write([]byte(`{"id":"fb-9","name":"Ravi","email":"ravi@example.com"}`))
		case "no-email":
			_, _ = w.Write([]byte(`{"id":"fb-9","name":"Ravi"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	v := NewFacebookVerifier("shh", srv.URL, srv.Client())
	p, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderFacebook, p.Provider)
	assert.Equal(t, "ravi@example.com", p.Email)

	_, err = v.Verify(context.Background(), "no-email")
	assert.True(t, errors.Is(err, errors.ErrAuth))

	_, err = v.Verify(context.Background(), "expired")
	assert.True(t, errors.Is(err, errors.ErrAuth))
}

func TestVerifierUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewFacebookVerifier("", srv.URL, nil).Verify(context.Background(), "tok")
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}
