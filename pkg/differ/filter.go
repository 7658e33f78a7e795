package differ

import (
	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// ActionFilter decides whether a planned action is sent.
type ActionFilter interface {
	Allow(action catalog.UpdateAction, existing, desired *catalog.Product) bool
}

// ActionFilterFunc adapts a function to ActionFilter.
type ActionFilterFunc func(action catalog.UpdateAction, existing, desired *catalog.Product) bool

// Allow implements ActionFilter.
func (f ActionFilterFunc) Allow(action catalog.UpdateAction, existing, desired *catalog.Product) bool {
	return f(action, existing, desired)
}

// AllowAll keeps every action.
var AllowAll ActionFilter = ActionFilterFunc(func(catalog.UpdateAction, *catalog.Product, *catalog.Product) bool {
	return true
})

// ExcludeActions drops actions by name.
func ExcludeActions(names ...string) ActionFilter {
	denied := make(map[string]struct{}, len(names))
	for _, n := range names {
		denied[n] = struct{}{}
	}
	return ActionFilterFunc(func(action catalog.UpdateAction, _, _ *catalog.Product) bool {
		_, drop := denied[action.Action]
		return !drop
	})
}

// Chain keeps an action only when every filter allows it.
func Chain(filters ...ActionFilter) ActionFilter {
	return ActionFilterFunc(func(action catalog.UpdateAction, existing, desired *catalog.Product) bool {
		for _, f := range filters {
			if f != nil && !f.Allow(action, existing, desired) {
				return false
			}
		}
		return true
	})
}

// PublishingStrategy decides when a changeset also publishes the product.
type PublishingStrategy string

// Publishing strategies.
const (
	PublishNever                     PublishingStrategy = ""
	PublishAlways                    PublishingStrategy = "always"
	PublishStagedAndPublishedOnly    PublishingStrategy = "stagedAndPublishedOnly"
	PublishNotStagedAndPublishedOnly PublishingStrategy = "notStagedAndPublishedOnly"
)

// ParsePublishingStrategy validates a strategy name.
func ParsePublishingStrategy(name string) (PublishingStrategy, error) {
	switch s := PublishingStrategy(name); s {
	case PublishNever, PublishAlways, PublishStagedAndPublishedOnly, PublishNotStagedAndPublishedOnly:
		return s, nil
	}
	return PublishNever, errors.NewConfigError("differ", "unknown publishing strategy "+name, nil)
}

// CanBePublished reports whether product may be published under strategy.
func CanBePublished(product *catalog.Product, strategy PublishingStrategy) bool {
	if product == nil {
		return false
	}
	switch strategy {
	case PublishAlways:
		return true
	case PublishStagedAndPublishedOnly:
		return product.HasStagedChanges && product.Published
	case PublishNotStagedAndPublishedOnly:
		return !product.HasStagedChanges && product.Published
	}
	return false
}
