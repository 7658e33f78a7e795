package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
)

func TestAuthenticators(t *testing.T) {
	tests := []struct {
		name   string
		auth   Authenticator
		header string
		want   string
	}{
		{name: "none", auth: &NoAuth{}, header: "Authorization", want: ""},
		{name: "bearer", auth: &BearerAuth{}, header: "Authorization", want: "Bearer secret"},
		{name: "custom header", auth: &HeaderAuth{Header: "X-Api-Key"}, header: "X-Api-Key", want: "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{Header: make(http.Header)}
			tt.auth.Apply(req, "secret")
			assert.Equal(t, tt.want, req.Header.Get(tt.header))
		})
	}
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func tokenServer(t *testing.T, expiresIn int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "manage_project:shop", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":%d}`, calls.Load(), expiresIn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCredentials(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		wantCalls int32
		wantLast  string
	}{
		{name: "reuses a valid token", expiresIn: 3600, wantCalls: 1, wantLast: "tok-1"},
		{name: "renews a token about to expire", expiresIn: 1, wantCalls: 2, wantLast: "tok-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := tokenServer(t, tt.expiresIn, &calls)
			cc := &ClientCredentials{
				AuthURL:      srv.URL + "/",
				ClientID:     "id",
				ClientSecret: "secret",
				Scope:        ProjectScope("shop"),
				HTTP:         srv.Client(),
			}

			first, err := cc.Token(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "tok-1", first)

			last, err := cc.Token(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantLast, last)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestClientCredentialsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"statusCode":401,"message":"invalid client"}`))
	}))
	defer srv.Close()

	cc := &ClientCredentials{AuthURL: srv.URL, ClientID: "id"}
	_, err := cc.Token(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, errors.StatusCode(err))
	assert.Contains(t, err.Error(), "invalid client")

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, srv.URL+"/oauth/token", apiErr.Endpoint)
}
