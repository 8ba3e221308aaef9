package platform

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/erp/bridge/internal/domain/platform"
	"github.com/go-resty/resty/v2"
)

// tokenPath is the OAuth client-credentials endpoint
const tokenPath = "/api/oauth/token"

// tokenLeeway renews a token this long before it expires
const tokenLeeway = 30 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenSource caches the access token of the integration and renews it on expiry
type tokenSource struct {
	mu           sync.Mutex
	http         *resty.Client
	clientID     string
	clientSecret string
	token        string
	expiresAt    time.Time
	now          func() time.Time
}

func newTokenSource(http *resty.Client, clientID, clientSecret string) *tokenSource {
	return &tokenSource{
		http:         http,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// Token returns a valid access token, fetching a new one when needed
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt.Add(-tokenLeeway)) {
		return s.token, nil
	}

	var res tokenResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     s.clientID,
			"client_secret": s.clientSecret,
		}).
		SetResult(&res).
		Post(tokenPath)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", platform.ErrUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK || res.AccessToken == "" {
		return "", fmt.Errorf("%w: status %d: %s", platform.ErrAuthFailed, resp.StatusCode(), resp.String())
	}

	s.token = res.AccessToken
	s.expiresAt = s.now().Add(time.Duration(res.ExpiresIn) * time.Second)
	return s.token, nil
}

// Invalidate drops the cached token so the next request authenticates again
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
