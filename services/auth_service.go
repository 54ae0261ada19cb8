package services

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

// TokenResponse represents the OAuth2 token endpoint response from Cognito
type TokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// CognitoTokenExchanger exchanges authorization codes for tokens at the hosted UI token endpoint
type CognitoTokenExchanger struct {
	domain       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewCognitoTokenExchanger creates a new token exchanger for the given app client
func NewCognitoTokenExchanger(domain, clientID, clientSecret string) *CognitoTokenExchanger {
	return &CognitoTokenExchanger{
		domain:       domain,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ExchangeCode exchanges an authorization code for the ID token
func (e *CognitoTokenExchanger) ExchangeCode(ctx context.Context, code, redirectURI, state string) (string, error) {
	if e.domain == "" || e.clientID == "" {
		return "", ErrIdentityProvider.Wrap(fmt.Errorf("cognito not configured"))
	}

	tokenURL := strings.TrimSuffix(e.domain, "/") + "/oauth2/token"
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {e.clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	if e.clientSecret != "" {
		data.Set("client_secret", e.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", ErrIdentityProvider.Wrap(fmt.Errorf("token request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", ErrIdentityProvider.Wrap(fmt.Errorf("token exchange failed: status %d, body: %s", resp.StatusCode, string(body)))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return "", fmt.Errorf("no id_token in response")
	}

	return tokenResp.IDToken, nil
}
