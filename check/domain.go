package check

import (
	"github.com/optimode/mailscore/internal/lists"
	"github.com/optimode/mailscore/internal/parse"
)

// Classification is the outcome of the static table lookups.
type Classification struct {
	IsDisposable   bool
	IsRoleBased    bool
	IsFreeProvider bool
	Suggestion     string // corrected address, empty when the domain is not a known typo
}

// Classifier runs the disposable, role-based, free-provider and typo lookups.
// All lookups are exact; there is no fuzzy matching.
type Classifier struct {
	tables *lists.Tables
}

// NewClassifier creates a classifier over the given tables.
// A nil tables value selects the embedded defaults.
func NewClassifier(tables *lists.Tables) *Classifier {
	if tables == nil {
		tables = lists.Default()
	}
	return &Classifier{tables: tables}
}

// Classify looks up a structurally split address.
func (c *Classifier) Classify(addr parse.Address) Classification {
	out := Classification{
		IsDisposable:   c.tables.IsDisposable(addr.Domain),
		IsRoleBased:    c.tables.IsRoleBased(addr.Local),
		IsFreeProvider: c.tables.IsFreeProvider(addr.Domain),
	}
	if corrected, ok := c.tables.Correction(addr.Domain); ok {
		out.Suggestion = addr.Local + "@" + corrected
	}
	return out
}
