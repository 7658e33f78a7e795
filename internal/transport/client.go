// Package transport implements the store contracts of pkg/client over the
// store's HTTP API.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Config locates a project and carries its credentials. Either Token or
// the client credentials must be set.
type Config struct {
	APIURL       string
	AuthURL      string
	ProjectKey   string
	Token        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client sends authenticated requests to one project.
type Client struct {
	http    *http.Client
	auth    Authenticator
	tokens  TokenSource
	baseURL string
}

// New creates a transport client for cfg.
func New(cfg Config) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.NewConfigError("transport", "api url is required", nil)
	}
	if cfg.ProjectKey == "" {
		return nil, errors.NewConfigError("transport", "project key is required", nil)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	var tokens TokenSource
	switch {
	case cfg.Token != "":
		tokens = StaticToken(cfg.Token)
	case cfg.ClientID != "" && cfg.AuthURL != "":
		tokens = &ClientCredentials{
			AuthURL:      cfg.AuthURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        ProjectScope(cfg.ProjectKey),
			HTTP:         hc,
		}
	default:
		return nil, errors.NewConfigError("transport", "either a token or client credentials with an auth url are required", nil)
	}

	return &Client{
		http:    hc,
		auth:    &BearerAuth{},
		tokens:  tokens,
		baseURL: strings.TrimRight(cfg.APIURL, "/") + "/" + cfg.ProjectKey,
	}, nil
}

// URL returns the absolute URL of path with query.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if enc := encodeValues(query); enc != "" {
		u += "?" + enc
	}
	return u
}

// Do sends a request to path and decodes a successful response into
// target. body, when set, is sent as JSON. resource names the entity in
// errors. Failed responses become errors.APIError.
func (c *Client) Do(ctx context.Context, method, resource, path string, query url.Values, body, target any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", resource, err)
		}
		payload = bytes.NewReader(data)
	}

	endpoint := c.URL(path, query)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+endpoint, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	c.auth.Apply(req, token)

	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	logging.FromContext(ctx).Trace().
		Str("method", method).
		Str("url", endpoint).
		Msg("Sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.WrapAPI(resource, 0, err)
	}
	return DecodeResponse(resp, resource, target)
}
