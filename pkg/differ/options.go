package differ

import (
	"fmt"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// options configures a planner.
type options struct {
	blacklist       map[catalog.ActionGroup]bool
	whitelist       map[catalog.ActionGroup]bool // nil allows every group
	filter          ActionFilter                 // nil allows every action
	failOnDuplicate bool
	logOnDuplicate  bool
	publishing      PublishingStrategy
}

func defaultOptions() *options {
	return &options{
		blacklist:      make(map[catalog.ActionGroup]bool),
		logOnDuplicate: true,
	}
}

// Option is a function that configures a Planner.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns planner options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

func parseGroups(names []string) ([]catalog.ActionGroup, error) {
	groups := make([]catalog.ActionGroup, 0, len(names))
	for _, name := range names {
		g, ok := catalog.ParseActionGroup(name)
		if !ok {
			return nil, errors.NewConfigError("differ", fmt.Sprintf("invalid product sync action group: %s", name), nil)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// WithBlacklist denies whole action groups. An unknown group name is a
// configuration error.
func WithBlacklist(groups ...string) Option {
	return func(o *options) error {
		parsed, err := parseGroups(groups)
		if err != nil {
			return err
		}
		for _, g := range parsed {
			o.blacklist[g] = true
		}
		return nil
	}
}

// WithWhitelist restricts planning to the given action groups.
func WithWhitelist(groups ...string) Option {
	return func(o *options) error {
		parsed, err := parseGroups(groups)
		if err != nil {
			return err
		}
		o.whitelist = make(map[catalog.ActionGroup]bool, len(parsed))
		for _, g := range parsed {
			o.whitelist[g] = true
		}
		return nil
	}
}

// WithActionFilter adds a per-action predicate applied after group
// filtering. Filters accumulate; an action must pass every one.
func WithActionFilter(filter ActionFilter) Option {
	return func(o *options) error {
		if filter == nil {
			return &errors.ValidationError{
				Field:   "filter",
				Message: "cannot be nil",
			}
		}
		if o.filter == nil {
			o.filter = filter
			return nil
		}
		o.filter = Chain(o.filter, filter)
		return nil
	}
}

// WithDuplicateAttributePolicy controls duplicate attributes within a
// variant: fail turns them into an error, log warns about each one.
func WithDuplicateAttributePolicy(fail, log bool) Option {
	return func(o *options) error {
		o.failOnDuplicate = fail
		o.logOnDuplicate = log
		return nil
	}
}

// WithPublishingStrategy appends a publish action to non-empty changesets
// when the existing product's state matches the strategy. An empty name
// disables publishing.
func WithPublishingStrategy(name string) Option {
	return func(o *options) error {
		strategy, err := ParsePublishingStrategy(name)
		if err != nil {
			return err
		}
		o.publishing = strategy
		return nil
	}
}

func (o *options) allows(g catalog.ActionGroup) bool {
	if o.blacklist[g] {
		return false
	}
	return o.whitelist == nil || o.whitelist[g]
}
