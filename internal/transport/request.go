package transport

import (
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// errorBody is the error payload the store returns.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// DecodeResponse decodes a JSON response into target. Any status outside
// 2xx becomes an errors.APIError carrying the store's message.
func DecodeResponse(resp *http.Response, resource string, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
			msg = eb.Message
		}
		apiErr := errors.NewAPIError(resource, resp.StatusCode, msg)
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.Path
		}
		apiErr.Body = string(body)
		return apiErr
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", resource, err)
	}
	return nil
}

// queryValues encodes q as URL parameters. The where predicate is
// included only when includeWhere is set.
func queryValues(q client.Query, includeWhere bool) url.Values {
	v := url.Values{}
	if includeWhere && q.Where != "" {
		v.Set("where", q.Where)
	}
	if q.Staged {
		v.Set("staged", "true")
	}
	if q.PerPage > 0 {
		v.Set("limit", strconv.Itoa(q.PerPage))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

// encodeValues encodes like url.Values.Encode but escapes spaces as %20,
// matching how predicates are sized.
func encodeValues(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, val := range v[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(strings.ReplaceAll(url.QueryEscape(val), "+", "%20"))
		}
	}
	return b.String()
}
