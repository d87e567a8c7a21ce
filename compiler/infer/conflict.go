package infer

import (
	"sync"

	"github.com/syssam/gqlcompose"
)

// ConflictReporter collects inference ambiguities and reports each field
// path once per build.
type ConflictReporter struct {
	mu        sync.Mutex
	rep       gqlcompose.Reporter
	threshold int
	seen      map[string]bool
	conflicts []*gqlcompose.InferenceAmbiguity
}

// NewConflictReporter reports ambiguities whose disagreement count reaches
// threshold. A threshold below 1 is treated as 1.
func NewConflictReporter(rep gqlcompose.Reporter, threshold int) *ConflictReporter {
	return &ConflictReporter{rep: rep, threshold: max(threshold, 1), seen: map[string]bool{}}
}

// Add records a. disagreement is the number of observations that did not
// match the most frequent shape.
func (c *ConflictReporter) Add(a *gqlcompose.InferenceAmbiguity, disagreement int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := a.Type + "." + a.Path
	if c.seen[key] || disagreement < c.threshold {
		return
	}
	c.seen[key] = true
	c.conflicts = append(c.conflicts, a)
	if c.rep != nil {
		c.rep.Warn(a.Error())
	}
}

// Conflicts returns the reported ambiguities.
func (c *ConflictReporter) Conflicts() []*gqlcompose.InferenceAmbiguity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*gqlcompose.InferenceAmbiguity(nil), c.conflicts...)
}

// Forget allows the paths of typeName to be reported again.
func (c *ConflictReporter) Forget(typeName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.seen {
		if len(k) > len(typeName) && k[:len(typeName)+1] == typeName+"." {
			delete(c.seen, k)
		}
	}
}
