// Package symbols provides the declaration store queried for completion.
package symbols

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/CWBudde/go-ada-lsp/internal/lexer"
)

var log = commonlog.GetLogger("ada-lsp.symbols")

// Common declaration categories.
const (
	CategoryProcedure = "procedure"
	CategoryFunction  = "function"
	CategoryVariable  = "variable"
)

// ScopeGlobal is the scope of library-level declarations.
const ScopeGlobal = "global"

// Declaration is one named entity visible to completion.
type Declaration struct {
	Name     string `toml:"name"`
	Category string `toml:"category"` // procedure, function, variable, ...
	Scope    string `toml:"scope"`    // "global" or the enclosing routine name
}

// Detail renders a short human-readable description.
func (d Declaration) Detail() string {
	return fmt.Sprintf("%s %s (%s)", d.Category, d.Name, d.Scope)
}

// Table stores declarations keyed by name.
// Visibility is flat: every declaration is visible everywhere once added.
// Iteration follows insertion order; overwriting a name keeps its position.
// A Table is safe for concurrent use.
type Table struct {
	decls *orderedmap.OrderedMap[string, Declaration]
	mu    sync.Mutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		decls: orderedmap.New[string, Declaration](),
	}
}

// Add inserts or replaces the declaration for name (last write wins).
func (t *Table) Add(name, category, scope string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, replaced := t.decls.Set(name, Declaration{Name: name, Category: category, Scope: scope}); replaced {
		log.Debugf("replaced declaration %q (%s in %s)", name, category, scope)
	}
}

// AddAll adds every declaration in order.
func (t *Table) AddAll(decls []Declaration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range decls {
		t.decls.Set(d.Name, d)
	}
}

// Lookup returns the declaration for name.
// The second result is false when no declaration has that name.
func (t *Table) Lookup(name string) (Declaration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.decls.Get(name)
}

// Remove deletes the declaration for name; a missing name is a no-op.
func (t *Table) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.decls.Delete(name)
}

// SuggestionsByPrefix returns the declarations whose name starts with prefix.
// Matching is case-sensitive; an empty prefix matches every declaration.
func (t *Table) SuggestionsByPrefix(prefix string) []Declaration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.collect(func(d Declaration) bool {
		return strings.HasPrefix(d.Name, prefix)
	})
}

// VisibleInScope returns the declarations visible from the context described
// by tokens. The table is flat, so this is every stored declaration.
func (t *Table) VisibleInScope(tokens []lexer.Token) []Declaration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.collect(func(Declaration) bool { return true })
}

// All returns every declaration in iteration order.
func (t *Table) All() []Declaration {
	return t.VisibleInScope(nil)
}

// ByCategory returns the declarations of the given category.
func (t *Table) ByCategory(category string) []Declaration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.collect(func(d Declaration) bool {
		return d.Category == category
	})
}

// Len returns the number of declarations.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.decls.Len()
}

// collect must be called with t.mu held.
func (t *Table) collect(keep func(Declaration) bool) []Declaration {
	result := make([]Declaration, 0, t.decls.Len())

	for pair := t.decls.Oldest(); pair != nil; pair = pair.Next() {
		if keep(pair.Value) {
			result = append(result, pair.Value)
		}
	}

	return result
}
