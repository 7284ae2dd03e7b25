package catalog

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// TableVersion is the store's abstract view of one versioned logical table,
// view, or component view. The store never mutates Cols/ColsByName directly
// except through RebindColumn (used by component views to rebind the "pos"
// column after a relation rebuild) and RemoveColumn (called by
// store.Base.DropColumn).
type TableVersion struct {
	ID      uuid.UUID
	Version int64
	Kind    TableKind

	// Base is non-nil for views and component views.
	Base *TableVersion
	// Depth is this TableVersion's position in a view chain, starting at 1
	// for a view directly over a plain table. It is what makes a stacked
	// component view's pos_<depth> column collision-free.
	Depth int

	mu         sync.RWMutex
	Cols       []*Column
	ColsByName map[string]*Column
}

// NewTableVersion builds a TableVersion and indexes its columns by name.
func NewTableVersion(id uuid.UUID, version int64, kind TableKind, base *TableVersion, cols []*Column) *TableVersion {
	tv := &TableVersion{
		ID:      id,
		Version: version,
		Kind:    kind,
		Base:    base,
		Cols:    cols,
	}
	if base != nil {
		tv.Depth = base.Depth + 1
	} else {
		tv.Depth = 0
	}
	tv.reindex()
	return tv
}

func (tv *TableVersion) reindex() {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	tv.ColsByName = make(map[string]*Column, len(tv.Cols))
	for _, c := range tv.Cols {
		tv.ColsByName[c.Name] = c
	}
}

// IsView reports whether this TableVersion is a view or component view.
func (tv *TableVersion) IsView() bool {
	return tv.Kind == KindView || tv.Kind == KindComponentView
}

// IsComponentView reports whether this TableVersion is a component view.
func (tv *TableVersion) IsComponentView() bool {
	return tv.Kind == KindComponentView
}

// StorageName derives the physical backing relation name for this version.
func (tv *TableVersion) StorageName() string {
	return TableStorageName(tv.Kind, tv.ID)
}

// AddColumn appends col to the catalog-visible column list and index. It
// does not touch physical storage; callers also drive store.Base.AddColumn.
func (tv *TableVersion) AddColumn(col *Column) error {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	if _, exists := tv.ColsByName[col.Name]; exists {
		return fmt.Errorf("catalog: column %q already exists", col.Name)
	}
	tv.Cols = append(tv.Cols, col)
	tv.ColsByName[col.Name] = col
	return nil
}

// RemoveColumn drops col from the catalog-visible column list and index.
func (tv *TableVersion) RemoveColumn(name string) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	for i, c := range tv.Cols {
		if c.Name == name {
			tv.Cols = append(tv.Cols[:i], tv.Cols[i+1:]...)
			break
		}
	}
	delete(tv.ColsByName, name)
}

// RebindColumn repoints the named catalog column's Backing at a newly
// created physical column — used by component views to rebind "pos" onto
// the pos_<depth> storage column after a relation rebuild, so expressions
// referring to "pos" resolve against the right physical column.
func (tv *TableVersion) RebindColumn(name string, backing *ColumnBacking) {
	tv.mu.Lock()
	defer tv.mu.Unlock()
	if c, ok := tv.ColsByName[name]; ok {
		c.mu.Lock()
		c.Backing = backing
		c.mu.Unlock()
	}
}

// Column looks up a catalog column by name.
func (tv *TableVersion) Column(name string) (*Column, bool) {
	tv.mu.RLock()
	defer tv.mu.RUnlock()
	c, ok := tv.ColsByName[name]
	return c, ok
}
