package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
)

const userInfoBodyLimit = 1 << 20

// Client is an OAuth2 provider client backed by golang.org/x/oauth2
type Client struct {
	provider    string
	config      *oauth2.Config
	userInfoURL string
}

// New creates a client for one configured provider
func New(provider string, cfg config.SocialProviderConfig) *Client {
	return &Client{
		provider: provider,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: defaultScopes(provider),
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// Enabled reports whether the provider has credentials configured
func (c *Client) Enabled() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// AuthCodeURL returns the provider's authorization URL
func (c *Client) AuthCodeURL(state string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("provider %s is not configured", c.provider)
	}
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades an authorization code for the provider identity
func (c *Client) Exchange(ctx context.Context, code string) (*domain.SocialProfile, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("provider %s is not configured", c.provider)
	}

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code with %s: %w", c.provider, err)
	}

	return c.fetchProfile(ctx, token)
}

// userInfo covers the field names Google and GitHub use for the same data
type userInfo struct {
	ID       json.RawMessage `json:"id"`
	Sub      string          `json:"sub"`
	Email    string          `json:"email"`
	Login    string          `json:"login"`
	Username string          `json:"username"`
	Name     string          `json:"name"`
}

func (c *Client) fetchProfile(ctx context.Context, token *oauth2.Token) (*domain.SocialProfile, error) {
	client := c.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo from %s: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request to %s returned %d", c.provider, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, userInfoBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}

	profile := &domain.SocialProfile{
		Provider:   c.provider,
		ProviderID: providerID(info),
		Email:      info.Email,
		Username:   username(info),
		Raw:        body,
	}

	return profile, nil
}

// providerID normalizes the id field: GitHub sends a number, Google a
// "sub" string
func providerID(info userInfo) string {
	if info.Sub != "" {
		return info.Sub
	}
	if len(info.ID) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(info.ID, &asString); err == nil {
		return asString
	}

	var asNumber int64
	if err := json.Unmarshal(info.ID, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10)
	}

	return ""
}

func username(info userInfo) string {
	if info.Login != "" {
		return info.Login
	}
	return info.Username
}

func defaultScopes(provider string) []string {
	switch provider {
	case "google":
		return []string{"openid", "email", "profile"}
	case "github":
		return []string{"read:user", "user:email"}
	default:
		return []string{"email"}
	}
}
