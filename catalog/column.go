package catalog

import (
	"fmt"
	"sync"
)

// ColumnBacking holds the physical storage-column names allocated for a
// Column the last time a relation descriptor was (re)generated. It is
// recreated wholesale on every CreateBackingColumns call rather than
// patched in place, so a Column can never end up holding names bound to a
// stale relation version.
type ColumnBacking struct {
	ValueName     string
	ErrorMsgName  string
	ErrorTypeName string
	IndexName     string
}

// Column is the store's view of one user column of a TableVersion. Storage
// names are derived deterministically from ID, so two independent
// constructions of the same (table, column) pair always agree.
type Column struct {
	ID         int32
	Name       string
	Type       ColumnType
	IsStored   bool
	IsComputed bool
	IsIndexed  bool

	mu         sync.Mutex
	Backing    *ColumnBacking
	Generation int // bumped each time CreateBackingColumns runs
}

// StorageName is the physical column name holding the value.
func (c *Column) StorageName() string { return fmt.Sprintf("col_%d", c.ID) }

// ErrorMsgStorageName is the physical column name holding a computed
// column's stringified exception, when present.
func (c *Column) ErrorMsgStorageName() string { return fmt.Sprintf("col_%d_errormsg", c.ID) }

// ErrorTypeStorageName is the physical column name holding a computed
// column's exception type name, when present.
func (c *Column) ErrorTypeStorageName() string { return fmt.Sprintf("col_%d_errortype", c.ID) }

// IndexStorageName is the physical column name holding the raw embedding
// for an indexed column.
func (c *Column) IndexStorageName() string { return fmt.Sprintf("col_%d_idx", c.ID) }

// CreateBackingColumns (re)allocates c.Backing from the current storage-name
// derivation and bumps Generation. It must be called once per relation
// descriptor (re)generation, even if c.Backing is already set: a Column does
// not know whether it is being reused by the same relation or rebound to a
// freshly rebuilt one, so the safe behavior is to always regenerate.
func (c *Column) CreateBackingColumns() *ColumnBacking {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Backing = &ColumnBacking{
		ValueName: c.StorageName(),
	}
	if c.IsComputed {
		c.Backing.ErrorMsgName = c.ErrorMsgStorageName()
		c.Backing.ErrorTypeName = c.ErrorTypeStorageName()
	}
	if c.IsIndexed {
		c.Backing.IndexName = c.IndexStorageName()
	}
	c.Generation++
	return c.Backing
}

// NormalizeStored passes a computed column's raw produced value through a
// value-normalization hook before it is written to storage: binary blobs,
// media URIs, and structured (JSON) values all funnel through here so the
// loader never has to special-case a column's logical type.
func (c *Column) NormalizeStored(val any) any {
	switch c.Type {
	case TypeJSON:
		return val // serialization is the caller's concern at the driver boundary
	default:
		return val
	}
}
