// Package oauth verifies identity tokens issued by Google and Facebook.
package oauth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwalitptl/medinfo-api/internal/model"
	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

// Verifier checks a client-supplied token and returns the verified profile.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.OAuthProfile, error)
}

var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

// GoogleVerifier validates Google Identity Services id tokens through the
// tokeninfo endpoint.
type GoogleVerifier struct {
	clientID     string
	tokenInfoURL string
	httpClient   *http.Client
}

func NewGoogleVerifier(clientID, tokenInfoURL string, httpClient *http.Client) *GoogleVerifier {
	if tokenInfoURL == "" {
		tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	return &GoogleVerifier{clientID: clientID, tokenInfoURL: tokenInfoURL, httpClient: httpClient}
}

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
}

func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*model.OAuthProfile, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, errors.Validation("Google credential is required")
	}
	if v.clientID == "" {
		return nil, errors.Internal(fmt.Errorf("google client id not configured"))
	}

	var info googleTokenInfo
	status, err := getJSON(ctx, v.httpClient, v.tokenInfoURL+"?id_token="+url.QueryEscape(credential), &info)
	if err != nil {
		return nil, errors.FromUpstream("google sign-in", err)
	}
	if status >= 400 {
		return nil, errors.Auth("Invalid Google token")
	}
	if info.Aud != v.clientID {
		return nil, errors.Auth("Invalid Google token")
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return nil, errors.Auth("Google account email is not verified")
	}
	return &model.OAuthProfile{
		Provider: model.ProviderGoogle,
		Subject:  info.Sub,
		Email:    info.Email,
		Name:     info.Name,
	}, nil
}

// FacebookVerifier resolves a user access token through the Graph API.
type FacebookVerifier struct {
	appSecret  string
	graphURL   string
	httpClient *http.Client
}

func NewFacebookVerifier(appSecret, graphURL string, httpClient *http.Client) *FacebookVerifier {
	if graphURL == "" {
		graphURL = "https://graph.facebook.com"
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}
	return &FacebookVerifier{appSecret: appSecret, graphURL: strings.TrimRight(graphURL, "/"), httpClient: httpClient}
}

type facebookMe struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (v *FacebookVerifier) Verify(ctx context.Context, accessToken string) (*model.OAuthProfile, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.Validation("Facebook access token is required")
	}

	q := url.Values{
		"fields":       {"id,name,email"},
		"access_token": {accessToken},
	}
	if v.appSecret != "" {
		q.Set("appsecret_proof", appSecretProof(accessToken, v.appSecret))
	}

	var me facebookMe
	status, err := getJSON(ctx, v.httpClient, v.graphURL+"/me?"+q.Encode(), &me)
	if err != nil {
		return nil, errors.FromUpstream("facebook sign-in", err)
	}
	if status >= 400 || me.ID == "" {
		return nil, errors.Auth("Invalid Facebook token")
	}
	if me.Email == "" {
		return nil, errors.Auth("Facebook account has no email address")
	}
	return &model.OAuthProfile{
		Provider: model.ProviderFacebook,
		Subject:  me.ID,
		Email:    me.Email,
		Name:     me.Name,
	}, nil
}

func appSecretProof(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// getJSON decodes the body into out on success and returns the status code.
// Error bodies are not decoded.
func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode provider response: %w", err)
	}
	return resp.StatusCode, nil
}
