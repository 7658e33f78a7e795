package differ

import (
	"github.com/agentstation/catalogsync/pkg/catalog"
)

// Changeset is the planned update of one remote product.
type Changeset struct {
	ID      string                 `json:"id"`
	Version int64                  `json:"version"`
	Actions []catalog.UpdateAction `json:"actions"`
}

// ShouldUpdate reports whether the changeset carries any action.
func (c *Changeset) ShouldUpdate() bool {
	return c != nil && len(c.Actions) > 0
}

// Request returns the update payload at the changeset's version.
func (c *Changeset) Request() catalog.UpdateRequest {
	return catalog.UpdateRequest{Version: c.Version, Actions: c.Actions}
}

// Count returns the number of actions per action name.
func (c *Changeset) Count() map[string]int {
	counts := make(map[string]int)
	for _, a := range c.Actions {
		counts[a.Action]++
	}
	return counts
}

// Without returns a copy of the changeset without actions named in names.
func (c *Changeset) Without(names ...string) *Changeset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	out := &Changeset{ID: c.ID, Version: c.Version}
	for _, a := range c.Actions {
		if _, ok := drop[a.Action]; !ok {
			out.Actions = append(out.Actions, a)
		}
	}
	return out
}
