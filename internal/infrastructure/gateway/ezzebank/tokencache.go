// Package ezzebank implements the PIX gateway contract against the EzzeBank
// v2 REST API: OAuth2 client-credentials authentication, dynamic QR-code
// creation, and charge queries.
package ezzebank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

const (
	// expirySkew is subtracted from the advertised token lifetime so a token
	// handed out near its deadline does not expire mid-request.
	expirySkew = 30 * time.Second
	// Maximum response body size for token endpoint (64KB)
	maxTokenResponseSize = 64 << 10
)

// credential is an issued bearer token. Replaced wholesale on refresh, never
// mutated in place.
type credential struct {
	accessToken string
	expiresAt   time.Time
}

func (c credential) valid(now time.Time) bool {
	return c.accessToken != "" && now.Before(c.expiresAt)
}

// tokenResponse represents the OAuth token endpoint response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenCache obtains and caches bearer credentials from the gateway's OAuth2
// client-credentials endpoint. Refresh is the only critical section in the
// gateway path: readers take the RLock, and a double-check after acquiring
// the write lock keeps concurrent callers from issuing duplicate exchanges.
type TokenCache struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	logger       logger.Interface

	mu   sync.RWMutex
	cred credential
}

// NewTokenCache creates a TokenCache for the given gateway credentials.
func NewTokenCache(httpClient *http.Client, baseURL, clientID, clientSecret string, logger logger.Interface) *TokenCache {
	return &TokenCache{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

// GetToken returns a valid bearer token, refreshing it when the cached one
// has expired. A failed refresh never falls back to the stale token.
func (tc *TokenCache) GetToken(ctx context.Context) (string, error) {
	now := biztime.NowUTC()

	tc.mu.RLock()
	if tc.cred.valid(now) {
		token := tc.cred.accessToken
		tc.mu.RUnlock()
		return token, nil
	}
	tc.mu.RUnlock()

	tc.mu.Lock()
	defer tc.mu.Unlock()

	// Double-check: another caller may have refreshed while we waited.
	now = biztime.NowUTC()
	if tc.cred.valid(now) {
		return tc.cred.accessToken, nil
	}

	cred, err := tc.exchange(ctx)
	if err != nil {
		return "", err
	}
	tc.cred = cred
	return cred.accessToken, nil
}

// Invalidate drops the cached token so the next GetToken performs a fresh
// exchange. Called when the gateway rejects a request as unauthorized.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	tc.cred = credential{}
	tc.mu.Unlock()
}

// exchange performs the client-credentials grant. Caller holds the write lock.
func (tc *TokenCache) exchange(ctx context.Context) (credential, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		tc.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return credential{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(tc.clientID, tc.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return credential{}, errors.NewGatewayTimeoutError("token exchange timed out")
		}
		return credential{}, errors.NewGatewayAuthError(0, fmt.Sprintf("token exchange failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
		tc.logger.Errorw("token exchange rejected",
			"status", resp.StatusCode,
			"body", string(body),
		)
		return credential{}, errors.NewGatewayAuthError(resp.StatusCode, "token exchange rejected")
	}

	var data tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseSize)).Decode(&data); err != nil {
		return credential{}, errors.NewGatewayAuthError(resp.StatusCode, fmt.Sprintf("failed to decode token response: %v", err))
	}
	if data.AccessToken == "" || data.ExpiresIn <= 0 {
		return credential{}, errors.NewGatewayAuthError(resp.StatusCode, "token response missing access_token or expires_in")
	}

	lifetime := time.Duration(data.ExpiresIn) * time.Second
	if lifetime > expirySkew {
		lifetime -= expirySkew
	}

	tc.logger.Debugw("gateway token refreshed", "expires_in", data.ExpiresIn)
	return credential{
		accessToken: data.AccessToken,
		expiresAt:   biztime.NowUTC().Add(lifetime),
	}, nil
}
