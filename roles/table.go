package roles

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"xdao.co/facetreg/selector"
)

// Category is a named group of menu items.
type Category struct {
	Name  string   `yaml:"category"`
	Items []string `yaml:"items"`
}

// Table maps role labels to the ordered categories the role may access.
// A Table is never modified after LoadTable returns it.
type Table struct {
	roles map[string][]Category
	ids   map[selector.RoleID]string
}

type tableFile struct {
	Roles map[string][]Category `yaml:"roles"`
}

// LoadTable reads a YAML table from path.
func LoadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(b)
}

// ParseTable parses a YAML table of the form
//
//	roles:
//	  PROCUREMENT_ROLE:
//	    - category: Orders
//	      items: [Create, Approve]
func ParseTable(b []byte) (*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("roles: parse table: %w", err)
	}
	t := &Table{roles: make(map[string][]Category, len(f.Roles)), ids: make(map[selector.RoleID]string, len(f.Roles))}
	for label, cats := range f.Roles {
		id, err := ID(label)
		if err != nil {
			return nil, err
		}
		seen := map[string]struct{}{}
		for _, c := range cats {
			if c.Name == "" {
				return nil, fmt.Errorf("roles: %s: category without a name", label)
			}
			if _, dup := seen[c.Name]; dup {
				return nil, fmt.Errorf("roles: %s: category %q listed twice", label, c.Name)
			}
			seen[c.Name] = struct{}{}
		}
		t.roles[label] = cats
		t.ids[id] = label
	}
	return t, nil
}

// Labels returns every role label, sorted.
func (t *Table) Labels() []string {
	out := make([]string, 0, len(t.roles))
	for label := range t.roles {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Categories returns a copy of the categories for label.
func (t *Table) Categories(label string) ([]Category, bool) {
	cats, ok := t.roles[label]
	if !ok {
		return nil, false
	}
	out := make([]Category, len(cats))
	for i, c := range cats {
		out[i] = Category{Name: c.Name, Items: append([]string(nil), c.Items...)}
	}
	return out, true
}

// Allows reports whether label may open item within category.
func (t *Table) Allows(label, category, item string) bool {
	for _, c := range t.roles[label] {
		if c.Name != category {
			continue
		}
		for _, it := range c.Items {
			if it == item {
				return true
			}
		}
	}
	return false
}

// LabelOf maps an on-chain identifier back to the label it was derived from.
func (t *Table) LabelOf(id selector.RoleID) (string, bool) {
	label, ok := t.ids[id]
	return label, ok
}

// Cell publishes a Table to concurrent readers. Swap replaces it as a whole;
// a reader holds whichever version it loaded.
type Cell struct {
	cur atomic.Pointer[versioned]
}

type versioned struct {
	table   *Table
	version uint64
}

// NewCell returns a cell holding t as version 1.
func NewCell(t *Table) *Cell {
	c := &Cell{}
	c.cur.Store(&versioned{table: t, version: 1})
	return c
}

// Load returns the current table and its version.
func (c *Cell) Load() (*Table, uint64) {
	v := c.cur.Load()
	if v == nil {
		return nil, 0
	}
	return v.table, v.version
}

// Swap installs t as the next version and returns that version number.
func (c *Cell) Swap(t *Table) uint64 {
	for {
		old := c.cur.Load()
		next := &versioned{table: t, version: 1}
		if old != nil {
			next.version = old.version + 1
		}
		if c.cur.CompareAndSwap(old, next) {
			return next.version
		}
	}
}
