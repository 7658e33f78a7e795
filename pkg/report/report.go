// Package report counts per-record outcomes of an import run, persists
// failure details and renders the run summary.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Status is the outcome of one record, using the store's status codes.
type Status int

// Outcome statuses.
const (
	StatusFailed    Status = 0
	StatusUpdated   Status = 200
	StatusCreated   Status = 201
	StatusUnchanged Status = 304
	StatusNotFound  Status = 404
)

func (s Status) String() string {
	switch s {
	case StatusUpdated:
		return "updated"
	case StatusCreated:
		return "created"
	case StatusUnchanged:
		return "unchanged"
	case StatusNotFound:
		return "not found"
	}
	return "failed"
}

// Outcome is the result of reconciling one record. Err is set for failures.
type Outcome struct {
	Status Status
	SKUs   []string
	ID     string
	Err    error
	Record any // desired record, kept in the error report
}

// Failed returns a failed outcome.
func Failed(err error, skus []string, record any) Outcome {
	return Outcome{Status: StatusFailed, Err: err, SKUs: skus, Record: record}
}

// ErrorDetail is the serialized form of one failed record.
type ErrorDetail struct {
	Index      int       `json:"index"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	SKUs       []string  `json:"skus,omitempty"`
	ID         string    `json:"id,omitempty"`
	Record     any       `json:"record,omitempty"`
	Time       time.Time `json:"time"`
}

// Summary holds the counters of one run.
type Summary struct {
	Created                    int                       `json:"created"`
	Updated                    int                       `json:"updated"`
	Unchanged                  int                       `json:"unchanged"`
	Failed                     int                       `json:"failed"`
	ProductsWithMissingSKU     int                       `json:"productsWithMissingSKU"`
	ProductTypeUpdated         int                       `json:"productTypeUpdated"`
	DuplicatedSKUs             int                       `json:"duplicatedSKUs"`
	UnknownSKUCount            int                       `json:"unknownSKUCount"`
	VariantWithoutPriceUpdates int                       `json:"variantWithoutPriceUpdates"`
	UnknownAttributeNames      []string                  `json:"unknownAttributeNames,omitempty"`
	VariantReassignment        *client.ReassignmentStats `json:"variantReassignment,omitempty"`
	ErrorDir                   string                    `json:"errorDir,omitempty"`
}

// Collector records outcomes. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	summary  Summary
	errorDir  string
	fileLimit int
	handler   ErrorHandler
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithFileLimit caps how many error files are written. Zero writes one
// per failure.
func WithFileLimit(n int) CollectorOption {
	return func(c *Collector) {
		c.fileLimit = n
	}
}

// NewCollector creates a collector. An empty errorDir disables error
// files; a nil handler logs errors with the default limit.
func NewCollector(errorDir string, handler ErrorHandler, opts ...CollectorOption) *Collector {
	if handler == nil {
		handler = &LogErrorHandler{Limit: constants.DefaultErrorLimit}
	}
	c := &Collector{
		summary:  Summary{ErrorDir: errorDir},
		errorDir: errorDir,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare empties the error directory, creating it when missing.
func (c *Collector) Prepare() error {
	if c.errorDir == "" {
		return nil
	}
	if err := os.RemoveAll(c.errorDir); err != nil {
		return errors.WrapIO("empty", c.errorDir, err)
	}
	if err := os.MkdirAll(c.errorDir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", c.errorDir, err)
	}
	return nil
}

// Record counts an outcome. Failures are written to the error directory
// and passed to the error handler; Record itself never fails.
func (c *Collector) Record(ctx context.Context, o Outcome) {
	c.mu.Lock()
	switch o.Status {
	case StatusCreated:
		c.summary.Created++
	case StatusUpdated:
		c.summary.Updated++
	case StatusUnchanged:
		c.summary.Unchanged++
	case StatusNotFound:
		// Counted by the importer that knows why the record had no match.
	default:
		c.summary.Failed++
	}
	failed := c.summary.Failed
	c.mu.Unlock()

	if o.Status != StatusFailed {
		return
	}

	detail := ErrorDetail{
		Index:      failed,
		Message:    fmt.Sprint(o.Err),
		StatusCode: errors.StatusCode(o.Err),
		SKUs:       o.SKUs,
		ID:         o.ID,
		Record:     o.Record,
		Time:       time.Now().UTC(),
	}
	if c.errorDir != "" && (c.fileLimit <= 0 || failed <= c.fileLimit) {
		if err := c.writeDetail(detail); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("Could not write error report")
		}
	}
	c.handler.OnError(ctx, detail)
}

func (c *Collector) writeDetail(detail ErrorDetail) error {
	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.errorDir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", c.errorDir, err)
	}
	path := filepath.Join(c.errorDir, fmt.Sprintf("error-%d.json", detail.Index))
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// Update mutates the summary under the collector lock.
func (c *Collector) Update(fn func(s *Summary)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.summary)
}

// Summary returns a copy of the current counters.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.summary
	if c.summary.UnknownAttributeNames != nil {
		out.UnknownAttributeNames = append([]string(nil), c.summary.UnknownAttributeNames...)
	}
	if c.summary.VariantReassignment != nil {
		stats := *c.summary.VariantReassignment
		out.VariantReassignment = &stats
	}
	return out
}

// Reset zeroes all counters.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = Summary{ErrorDir: c.errorDir}
}

// ErrorDir returns the directory error files are written to.
func (c *Collector) ErrorDir() string {
	return c.errorDir
}
