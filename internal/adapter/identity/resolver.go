// Package identity issues and caches OAuth2 client-credentials tokens
// for the remote work-management API, per tenant application.
package identity

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

	"golang.org/x/sync/singleflight"

	"github.com/bridgelabs/planbridge/internal/domain"
	"github.com/bridgelabs/planbridge/internal/domain/tenant"
	"github.com/bridgelabs/planbridge/internal/secrets"
)

// refreshSkew is how long before expiry a cached token is considered
// stale. A token is never returned once now >= expiresAt - refreshSkew.
const refreshSkew = 60 * time.Second

type cacheKey struct {
	directoryID string
	clientID    string
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// Resolver obtains bearer tokens via the client-credentials flow and
// caches them in process memory keyed by (directory, application).
// Cache state is owned by the Resolver instance; there is no package
// level singleton, so tests get isolated caches. Concurrent callers
// hitting the same stale key collapse into a single upstream request.
type Resolver struct {
	authority  string
	scope      string
	vault      *secrets.Vault
	httpClient *http.Client

	mu    sync.Mutex
	cache map[cacheKey]cachedToken
	group singleflight.Group

	now func() time.Time // for testing
}

// NewResolver creates a Resolver. authority is the base URL of the token
// endpoint (the tenant directory id is appended per request); scope is
// the resource scope requested for every token.
func NewResolver(authority, scope string, vault *secrets.Vault, timeout time.Duration) *Resolver {
	return &Resolver{
		authority:  strings.TrimSuffix(authority, "/"),
		scope:      scope,
		vault:      vault,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[cacheKey]cachedToken),
		now:        time.Now,
	}
}

// Token returns a valid access token for the given integration config.
// A cache hit makes no network call. On a miss or near-expiry entry a
// single client-credentials request is issued, validated, cached and
// returned; any non-success response yields domain.ErrAuthentication
// carrying the upstream status and body.
func (r *Resolver) Token(ctx context.Context, cfg tenant.IntegrationConfig) (string, error) {
	key := cacheKey{directoryID: cfg.DirectoryID, clientID: cfg.ClientID}

	if tok, ok := r.cached(key); ok {
		return tok, nil
	}

	v, err, _ := r.group.Do(key.directoryID+"|"+key.clientID, func() (any, error) {
		// Another caller may have refreshed while we queued.
		if tok, ok := r.cached(key); ok {
			return tok, nil
		}
		return r.fetch(ctx, cfg, key)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) cached(key cacheKey) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[key]
	if !ok {
		return "", false
	}
	if !r.now().Before(entry.expiresAt.Add(-refreshSkew)) {
		return "", false
	}
	return entry.accessToken, true
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (r *Resolver) fetch(ctx context.Context, cfg tenant.IntegrationConfig, key cacheKey) (string, error) {
	secret := r.vault.Get(cfg.SecretRef)
	if secret == "" {
		return "", fmt.Errorf("%w: secret ref %q not resolvable", domain.ErrAuthentication, cfg.SecretRef)
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {cfg.ClientID},
		"client_secret": {secret},
		"scope":         {r.scope},
	}

	endpoint := r.authority + "/" + url.PathEscape(cfg.DirectoryID) + "/oauth2/v2.0/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token endpoint unreachable: %v", domain.ErrAuthentication, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read token response: %v", domain.ErrAuthentication, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d: %s",
			domain.ErrAuthentication, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: parse token response: %v", domain.ErrAuthentication, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", domain.ErrAuthentication)
	}

	r.mu.Lock()
	r.cache[key] = cachedToken{
		accessToken: tr.AccessToken,
		expiresAt:   r.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	r.mu.Unlock()

	return tr.AccessToken, nil
}
