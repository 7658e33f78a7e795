package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, token string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, token string) {
	req.Header.Set(a.Header, token)
}

// TokenSource supplies the access token sent with each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed access token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// ClientCredentials obtains tokens with the OAuth client credentials
// grant. Tokens are reused until shortly before they expire.
type ClientCredentials struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Scope        string
	HTTP         *http.Client

	once sync.Once
	src  oauth2.TokenSource
}

// TokenURL returns the token endpoint of the auth service.
func (c *ClientCredentials) TokenURL() string {
	return strings.TrimRight(c.AuthURL, "/") + "/oauth/token"
}

// Token implements TokenSource.
func (c *ClientCredentials) Token(_ context.Context) (string, error) {
	c.once.Do(func() {
		cfg := clientcredentials.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL(),
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		if c.Scope != "" {
			cfg.Scopes = []string{c.Scope}
		}
		// The source outlives any single request, so it gets its own context.
		base := context.Background()
		if c.HTTP != nil {
			base = context.WithValue(base, oauth2.HTTPClient, c.HTTP)
		}
		c.src = cfg.TokenSource(base)
	})

	tok, err := c.src.Token()
	if err != nil {
		return "", c.tokenError(err)
	}
	if tok.AccessToken == "" {
		return "", errors.NewAPIError("oauth", 0, "token response without access_token")
	}
	return tok.AccessToken, nil
}

// tokenError turns a rejected token request into an APIError carrying the
// auth service's message.
func (c *ClientCredentials) tokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return errors.WrapAPI("oauth", 0, err)
	}
	msg := strings.TrimSpace(string(re.Body))
	var eb errorBody
	if json.Unmarshal(re.Body, &eb) == nil && eb.Message != "" {
		msg = eb.Message
	} else if re.ErrorDescription != "" {
		msg = re.ErrorDescription
	}
	apiErr := errors.NewAPIError("oauth", re.Response.StatusCode, msg)
	apiErr.Endpoint = c.TokenURL()
	apiErr.Body = string(re.Body)
	apiErr.Err = err
	return apiErr
}

// ProjectScope is the scope granting full access to one project.
func ProjectScope(projectKey string) string {
	return "manage_project:" + projectKey
}
