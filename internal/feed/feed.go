// Package feed decodes record feeds into fixed-size chunks. A feed is
// either one top-level JSON array or newline-delimited JSON objects.
package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"unicode"

	json "github.com/goccy/go-json"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// Reader decodes records of type T.
type Reader[T any] struct {
	// Name identifies the feed in parse errors, usually the file path.
	Name string
}

// Open opens a feed file for reading. "-" is standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	return f, nil
}

// Chunks decodes src incrementally and calls fn with every size records.
// The last chunk may be shorter. Decoding stops at the first error from
// fn, the context or the decoder; a decode error is a ParseError naming
// the zero-based index of the offending record.
func (r *Reader[T]) Chunks(ctx context.Context, src io.Reader, size int, fn func([]T) error) error {
	if size <= 0 {
		return errors.NewValidationError("size", size, "must be positive")
	}

	br := bufio.NewReader(src)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.WrapIO("read", r.Name, err)
	}

	dec := json.NewDecoder(br)
	format := "ndjson"
	if first == '[' {
		format = "json"
		if _, err := dec.Token(); err != nil {
			return r.parseError(format, 0, err)
		}
	}

	chunk := make([]T, 0, size)
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if format == "json" && !dec.More() {
			break
		}

		var rec T
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF && format == "ndjson" {
				break
			}
			return r.parseError(format, index, err)
		}
		chunk = append(chunk, rec)
		if len(chunk) == size {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = make([]T, 0, size)
		}
	}

	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}

func (r *Reader[T]) parseError(format string, index int, err error) error {
	return errors.NewParseError(format, r.Name, fmt.Sprintf("record %d: %v", index, err), err)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !unicode.IsSpace(rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
