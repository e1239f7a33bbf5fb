package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Token is a bearer token with its expiry instant.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Provider issues bearer tokens for a scope. Implementations are the opaque
// identity capability; the pipeline never looks inside them.
type Provider interface {
	Token(ctx context.Context, scope string) (Token, error)
}

// ClientCredentials acquires tokens from an OAuth2 token endpoint using the
// client-credentials grant, one POST per scope.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *ClientCredentials) Token(ctx context.Context, scope string) (Token, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"scope":         {scope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("request token for scope %s: %w", scope, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Token{}, fmt.Errorf("token endpoint returned %d for scope %s: %s", resp.StatusCode, scope, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Token{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return Token{}, fmt.Errorf("token endpoint returned empty token for scope %s", scope)
	}

	return Token{
		Value:     tr.AccessToken,
		ExpiresAt: time.Now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
