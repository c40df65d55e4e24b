// Package lists holds the read-only reference tables used to classify
// addresses: disposable domains, role-based local parts, free webmail
// providers and known domain typos.
package lists

import (
	_ "embed"
	"strings"
)

var (
	//go:embed disposable.txt
	rawDisposable string
	//go:embed role.txt
	rawRole string
	//go:embed free.txt
	rawFree string
	//go:embed typos.txt
	rawTypos string
)

// Tables is an immutable set of classification tables.
// A Tables value is safe for concurrent use; nothing mutates it after New.
type Tables struct {
	disposable map[string]struct{}
	role       map[string]struct{}
	free       map[string]struct{}
	typos      map[string]string
}

var defaultTables *Tables

func init() {
	defaultTables = New(
		splitLines(rawDisposable),
		splitLines(rawRole),
		splitLines(rawFree),
		parseTypos(rawTypos),
	)
}

// Default returns the tables built from the embedded lists.
func Default() *Tables {
	return defaultTables
}

// New builds tables from the given entries. Entries are lower-cased.
// The inputs are copied, so callers may reuse their slices and map.
func New(disposable, role, free []string, typos map[string]string) *Tables {
	t := &Tables{
		disposable: toSet(disposable),
		role:       toSet(role),
		free:       toSet(free),
		typos:      make(map[string]string, len(typos)),
	}
	for k, v := range typos {
		t.typos[strings.ToLower(k)] = strings.ToLower(v)
	}
	return t
}

// IsDisposable reports whether domain is a known disposable domain.
func (t *Tables) IsDisposable(domain string) bool {
	_, ok := t.disposable[domain]
	return ok
}

// IsRoleBased reports whether local names a role mailbox.
// The comparison is case-insensitive.
func (t *Tables) IsRoleBased(local string) bool {
	_, ok := t.role[strings.ToLower(local)]
	return ok
}

// IsFreeProvider reports whether domain belongs to a public webmail provider.
func (t *Tables) IsFreeProvider(domain string) bool {
	_, ok := t.free[domain]
	return ok
}

// Correction returns the corrected domain for a known misspelling.
func (t *Tables) Correction(domain string) (string, bool) {
	c, ok := t.typos[domain]
	return c, ok
}

// Len returns the sizes of the four tables (for diagnostics).
func (t *Tables) Len() (disposable, role, free, typos int) {
	return len(t.disposable), len(t.role), len(t.free), len(t.typos)
}

func toSet(entries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[strings.ToLower(e)] = struct{}{}
	}
	return set
}

func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out
}

// parseTypos reads "misspelling corrected" pairs; malformed lines are skipped.
func parseTypos(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		out[fields[0]] = fields[1]
	}
	return out
}
