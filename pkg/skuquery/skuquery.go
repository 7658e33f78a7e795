// Package skuquery builds product queries by sku and splits sku lists so
// that every query stays within the store's URL length limit.
package skuquery

import (
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
)

const scaffold = "masterVariant(sku in ()) or variants(sku in ())"

// separator is the encoded "," between two quoted skus.
var separator = encodedLen(",")

// Predicate returns the where clause matching products carrying any of skus
// on the master or another variant.
func Predicate(skus []string) string {
	list := quoteList(skus)
	return "masterVariant(sku in (" + list + ")) or variants(sku in (" + list + "))"
}

// Chunk splits skus into ordered groups whose encoded predicate fits
// queryLimit bytes. Skus are packed greedily; a sku that does not fit on
// its own still gets a chunk of its own.
func Chunk(skus []string, queryLimit int) [][]string {
	available := queryLimit - encodedLen(scaffold)

	var chunks [][]string
	var current []string
	size := 0 // encoded length of one quoted list in current
	for _, sku := range skus {
		n := encodedLen(quote(sku))
		next := size + n
		if len(current) > 0 {
			next += separator
		}
		// The list appears twice in the predicate.
		if len(current) == 0 || 2*next < available {
			current = append(current, sku)
			size = next
			continue
		}
		chunks = append(chunks, current)
		current = []string{sku}
		size = n
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// QueryLimit returns the bytes left for the where clause once queryURL,
// without its scheme, and the parameter separator are accounted for.
func QueryLimit(urlLimit int, queryURL string) int {
	if i := strings.Index(queryURL, "://"); i >= 0 {
		queryURL = queryURL[i+3:]
	}
	return urlLimit - len(queryURL) - 1
}

// Encode escapes a where clause the way it is sent on the wire.
func Encode(where string) string {
	return strings.ReplaceAll(url.QueryEscape(where), "+", "%20")
}

func encodedLen(s string) int {
	return len(Encode(s))
}

func quoteList(skus []string) string {
	quoted := make([]string, len(skus))
	for i, sku := range skus {
		quoted[i] = quote(sku)
	}
	return strings.Join(quoted, ",")
}

func quote(s string) string {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return `"` + s + `"`
	}
	return string(b)
}
