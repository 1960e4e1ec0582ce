package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/quickmark/internal/domain"
	"github.com/MrSnakeDoc/quickmark/internal/utils"
)

// Endpoints are the identity service URLs. Tests point them at httptest.
type Endpoints struct {
	SignInWithIdp string
	Token         string
	Revoke        string
}

// DefaultEndpoints are the hosted Google identity endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SignInWithIdp: "https://identitytoolkit.googleapis.com/v1/accounts:signInWithIdp",
		Token:         "https://securetoken.googleapis.com/v1/token",
		Revoke:        "https://accounts.google.com/o/oauth2/revoke",
	}
}

// Session is the result of a federated sign-in.
type Session struct {
	User         domain.User
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Grant is the result of a refresh exchange.
type Grant struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

// IdentityClient talks to the identity service.
type IdentityClient struct {
	client    *http.Client
	apiKey    string
	endpoints Endpoints
}

// NewIdentityClient creates a client. A nil httpClient uses a 30s timeout client.
func NewIdentityClient(apiKey string, endpoints Endpoints, httpClient *http.Client) *IdentityClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &IdentityClient{
		client:    httpClient,
		apiKey:    apiKey,
		endpoints: endpoints,
	}
}

type signInRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SignInWithAccessToken exchanges an upstream Google access token for the
// system identity credential and refresh credential.
func (c *IdentityClient) SignInWithAccessToken(ctx context.Context, accessToken, requestURI string) (Session, error) {
	body, err := json.Marshal(signInRequest{
		PostBody:            "access_token=" + url.QueryEscape(accessToken) + "&providerId=google.com",
		RequestURI:          requestURI,
		ReturnIdpCredential: true,
		ReturnSecureToken:   true,
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.endpoints.SignInWithIdp), bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out signInResponse
	if err := c.do(req, &out, "Authentication failed"); err != nil {
		return Session{}, err
	}

	expiresIn, err := parseSeconds(out.ExpiresIn)
	if err != nil {
		return Session{}, err
	}

	displayName := out.DisplayName
	if displayName == "" {
		displayName, _, _ = strings.Cut(out.Email, "@")
	}

	return Session{
		User: domain.User{
			UID:         out.LocalID,
			Email:       out.Email,
			DisplayName: displayName,
			PhotoURL:    out.PhotoURL,
		},
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// Refresh exchanges a refresh credential for a new credential. A rejected
// exchange returns *domain.RemoteError.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (Grant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.endpoints.Token), strings.NewReader(form.Encode()))
	if err != nil {
		return Grant{}, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out refreshResponse
	if err := c.do(req, &out, "Token refresh failed"); err != nil {
		return Grant{}, err
	}

	expiresIn, err := parseSeconds(out.ExpiresIn)
	if err != nil {
		return Grant{}, err
	}

	return Grant{
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// Revoke invalidates an upstream access token.
func (c *IdentityClient) Revoke(ctx context.Context, token string) error {
	u := c.endpoints.Revoke + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	return c.do(req, nil, "Revoke failed")
}

func (c *IdentityClient) withKey(endpoint string) string {
	if c.apiKey == "" {
		return endpoint
	}
	return endpoint + "?key=" + url.QueryEscape(c.apiKey)
}

func (c *IdentityClient) do(req *http.Request, out any, fallback string) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach identity service: %w", err)
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return utils.RemoteError(resp, fallback)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity response: %w", err)
	}
	return nil
}

func parseSeconds(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expiresIn %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}
