package memstore

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/client"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// Call methods.
const (
	MethodQuery  = "query"
	MethodByID   = "byId"
	MethodUpdate = "update"
	MethodCreate = "create"
)

// Call records one request made against a repository.
type Call struct {
	Resource string
	Method   string
	ID       string
	Query    client.Query
	Request  catalog.UpdateRequest
}

// MatchFunc reports whether an entity satisfies a where predicate.
type MatchFunc[T any] func(entity T, where string) bool

// ApplyFunc applies update actions to an entity and returns the result.
type ApplyFunc[T any] func(entity T, actions []catalog.UpdateAction) T

type accessors[T any] struct {
	id         func(T) string
	setID      func(*T, string)
	version    func(T) int64
	setVersion func(*T, int64)
	clone      func(T) T
	prepare    func(*T) // optional, fills server-assigned fields on insert
}

// Repo is an in-memory repository for one resource. It checks versions
// on update, can inject conflicts and failures, and records every call.
type Repo[T any] struct {
	mu       sync.Mutex
	resource string
	prefix   string
	seq      int
	order    []string
	entities map[string]T
	acc      accessors[T]
	match    MatchFunc[T]
	apply    ApplyFunc[T]
	calls    *[]Call
	callsMu  *sync.Mutex

	conflicts  int
	queryErr   error
	updateErr  error
	createErr  error
	lastUpdate map[string]catalog.UpdateRequest
}

func newRepo[T any](resource, prefix string, acc accessors[T], match MatchFunc[T], apply ApplyFunc[T], calls *[]Call, callsMu *sync.Mutex) *Repo[T] {
	return &Repo[T]{
		resource:   resource,
		prefix:     prefix,
		entities:   make(map[string]T),
		acc:        acc,
		match:      match,
		apply:      apply,
		calls:      calls,
		callsMu:    callsMu,
		lastUpdate: make(map[string]catalog.UpdateRequest),
	}
}

// Seed adds entities. Missing ids are generated and a zero version becomes 1.
// It returns the stored entities.
func (r *Repo[T]) Seed(entities ...T) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, 0, len(entities))
	for _, e := range entities {
		out = append(out, r.insert(e))
	}
	return out
}

func (r *Repo[T]) insert(e T) T {
	e = r.acc.clone(e)
	if r.acc.prepare != nil {
		r.acc.prepare(&e)
	}
	if r.acc.id(e) == "" {
		r.seq++
		r.acc.setID(&e, fmt.Sprintf("%s-%d", r.prefix, r.seq))
	}
	if r.acc.version(e) == 0 {
		r.acc.setVersion(&e, 1)
	}
	id := r.acc.id(e)
	if _, exists := r.entities[id]; !exists {
		r.order = append(r.order, id)
	}
	r.entities[id] = e
	return r.acc.clone(e)
}

// SetMatcher replaces the predicate matcher.
func (r *Repo[T]) SetMatcher(fn MatchFunc[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.match = fn
}

// FailNextUpdates makes the next n updates fail with a 409 conflict. Each
// injected conflict bumps the stored version, the way a concurrent writer would.
func (r *Repo[T]) FailNextUpdates(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = n
}

// FailQueries makes every query fail with err. A nil err clears the failure.
func (r *Repo[T]) FailQueries(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queryErr = err
}

// FailUpdates makes every update fail with err. A nil err clears the failure.
func (r *Repo[T]) FailUpdates(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

// FailCreates makes every create fail with err. A nil err clears the failure.
func (r *Repo[T]) FailCreates(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createErr = err
}

// Get returns a stored entity.
func (r *Repo[T]) Get(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		var zero T
		return zero, false
	}
	return r.acc.clone(e), true
}

// All returns every stored entity in insertion order.
func (r *Repo[T]) All() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.acc.clone(r.entities[id]))
	}
	return out
}

// Len returns the number of stored entities.
func (r *Repo[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// LastUpdate returns the last accepted update request for id.
func (r *Repo[T]) LastUpdate(id string) (catalog.UpdateRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.lastUpdate[id]
	return req, ok
}

func (r *Repo[T]) record(c Call) {
	c.Resource = r.resource
	r.callsMu.Lock()
	defer r.callsMu.Unlock()
	*r.calls = append(*r.calls, c)
}

// Query implements client.Querier.
func (r *Repo[T]) Query(ctx context.Context, q client.Query) (*client.QueryResult[T], error) {
	r.record(Call{Method: MethodQuery, Query: q})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queryErr != nil {
		return nil, r.queryErr
	}

	results := make([]T, 0)
	for _, id := range r.order {
		e := r.entities[id]
		if q.Where == "" || (r.match != nil && r.match(e, q.Where)) {
			results = append(results, r.acc.clone(e))
		}
	}
	total := len(results)
	if !q.All && q.PerPage > 0 {
		start := min(q.Offset, total)
		results = results[start:min(start+q.PerPage, total)]
	}
	return &client.QueryResult[T]{
		Count:   len(results),
		Total:   total,
		Offset:  q.Offset,
		Results: results,
	}, nil
}

// ByID implements client.Repository.
func (r *Repo[T]) ByID(ctx context.Context, id string, staged bool) (*T, error) {
	r.record(Call{Method: MethodByID, ID: id, Query: client.Query{Staged: staged}})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, errors.NewAPIError(r.resource, http.StatusNotFound, fmt.Sprintf("%s %s not found", r.resource, id))
	}
	out := r.acc.clone(e)
	return &out, nil
}

// Update implements client.Repository. It rejects a stale version with 409.
func (r *Repo[T]) Update(ctx context.Context, id string, req catalog.UpdateRequest) (*T, error) {
	r.record(Call{Method: MethodUpdate, ID: id, Request: req})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	e, ok := r.entities[id]
	if !ok {
		return nil, errors.NewAPIError(r.resource, http.StatusNotFound, fmt.Sprintf("%s %s not found", r.resource, id))
	}
	if r.conflicts > 0 {
		r.conflicts--
		r.acc.setVersion(&e, r.acc.version(e)+1)
		r.entities[id] = e
		return nil, errors.NewConflictError(r.resource, id, req.Version)
	}
	if req.Version != r.acc.version(e) {
		return nil, errors.NewConflictError(r.resource, id, req.Version)
	}

	if r.apply != nil {
		e = r.apply(e, req.Actions)
	}
	r.acc.setVersion(&e, r.acc.version(e)+1)
	r.entities[id] = e
	r.lastUpdate[id] = req
	out := r.acc.clone(e)
	return &out, nil
}

// Create implements client.Repository.
func (r *Repo[T]) Create(ctx context.Context, draft *T) (*T, error) {
	r.record(Call{Method: MethodCreate})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, errors.NewAPIError(r.resource, http.StatusBadRequest, "empty draft")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	e := *draft
	r.acc.setID(&e, "")
	r.acc.setVersion(&e, 0)
	out := r.insert(e)
	return &out, nil
}
