package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kasuganosora/pixelstore/catalog"
	"github.com/kasuganosora/pixelstore/config"
	"github.com/kasuganosora/pixelstore/embedindex"
	"github.com/kasuganosora/pixelstore/storeerrors"
)

// Base is the backing-relation manager for one TableVersion: a plain table,
// a view, or a component view. All three share this single type; the
// per-kind variation (rowid-column construction, delete scoping) is a
// handful of switches on TV.Kind plus a base pointer, not enough structural
// difference to earn a type hierarchy.
type Base struct {
	TV    *catalog.TableVersion
	Cfg   config.Config
	Embed *embedindex.Store

	dia  *dialect
	base *Base // non-nil for views and component views

	mu   sync.Mutex
	desc *descriptor
}

// NewTable builds a Base for a plain table.
func NewTable(tv *catalog.TableVersion, cfg config.Config, embed *embedindex.Store) *Base {
	b := &Base{TV: tv, Cfg: cfg, Embed: embed, dia: newDialect(cfg.Store.Driver)}
	b.rebuild()
	return b
}

// NewView builds a Base for a view or component view over base. base must
// already have been rebuilt (its Create/rebuild called) so its rowid
// columns are resolved.
func NewView(tv *catalog.TableVersion, base *Base, cfg config.Config, embed *embedindex.Store) *Base {
	if !tv.IsView() {
		storeerrors.Raise("NewView called with non-view TableVersion kind %s", tv.Kind)
	}
	b := &Base{TV: tv, Cfg: cfg, Embed: embed, dia: newDialect(cfg.Store.Driver), base: base}
	b.rebuild()
	return b
}

// StorageName is the physical backing relation name.
func (b *Base) StorageName() string { return b.TV.StorageName() }

// RowIDColumns returns the rowid portion of the primary key (pk_columns
// minus v_min).
func (b *Base) RowIDColumns() []SysColumn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SysColumn(nil), b.desc.rowidCols...)
}

// PKColumns returns the full primary key: rowid columns ++ v_min.
func (b *Base) PKColumns() []SysColumn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.desc.pkColumns()
}

// columnByID looks up a catalog column by id against the current
// descriptor's snapshot, used by InsertRows/LoadColumn to resolve a
// TableRow's column-id keys to physical storage names.
func (b *Base) columnByID(id int32) (*catalog.Column, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	col, ok := b.desc.colsByID[id]
	return col, ok
}

// createRowIDColumns builds this relation's rowid columns per its kind:
// a single "rowid" for a plain table, whose values come from each inserted
// row's pk tuple; a verbatim copy of the base's rowid columns for a view (one
// view row per base row); the same copy plus a fresh pos_<n> column for a
// component view (one base row expands into many view rows, positionally
// numbered). n is the view's depth in its view chain (TV.Depth), so a stack
// of component views never collides on column name.
func (b *Base) createRowIDColumns() []SysColumn {
	switch b.TV.Kind {
	case catalog.KindTable:
		return []SysColumn{{Name: "rowid", SQLType: b.dia.bigintType()}}
	case catalog.KindView:
		if b.base == nil {
			storeerrors.Raise("view %s has no base store", b.TV.ID)
		}
		return append([]SysColumn(nil), b.base.desc.rowidCols...)
	case catalog.KindComponentView:
		if b.base == nil {
			storeerrors.Raise("component view %s has no base store", b.TV.ID)
		}
		rowidCols := append([]SysColumn(nil), b.base.desc.rowidCols...)
		posName := fmt.Sprintf("pos_%d", b.TV.Depth)
		rowidCols = append(rowidCols, SysColumn{Name: posName, SQLType: b.dia.bigintType()})
		return rowidCols
	default:
		storeerrors.Raise("unknown table kind %v", b.TV.Kind)
		return nil
	}
}

// rebuild recomputes this relation's full physical descriptor from its
// current TableVersion, wholesale, never incrementally: a Column's Backing
// from a previous generation cannot safely be reused after a schema
// change. For a component view it also rebinds the catalog "pos" column
// onto the freshly derived pos_<n> physical column.
func (b *Base) rebuild() {
	b.mu.Lock()
	defer b.mu.Unlock()
	rowidCols := b.createRowIDColumns()
	vminIdxKind := string(b.Cfg.Store.VMinIndexKind)
	if vminIdxKind == "" {
		vminIdxKind = string(config.IndexKindBRIN)
	}
	b.desc = buildDescriptor(b.TV, rowidCols, b.dia, catalog.MaxVersion, vminIdxKind)
	if b.TV.Kind == catalog.KindComponentView {
		pos := rowidCols[len(rowidCols)-1]
		b.TV.RebindColumn("pos", &catalog.ColumnBacking{ValueName: pos.Name})
	}
}

// logStmt logs a DDL/DML statement under op. Opt-in via config so normal
// operation isn't noisy.
func (b *Base) logStmt(op, sql string) {
	if b.Cfg.Store.LogStatements {
		log.Printf("store: %s: %s", op, sql)
	}
}

// Create issues the backing relation's CREATE TABLE and its full index set.
func (b *Base) Create(ctx context.Context, conn Conn) error {
	b.mu.Lock()
	desc := b.desc
	b.mu.Unlock()

	var cols []string
	for _, c := range desc.rowidCols {
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL", b.dia.quoteIdentifier(c.Name), c.SQLType))
	}
	cols = append(cols, fmt.Sprintf("%s %s NOT NULL", b.dia.quoteIdentifier(desc.vMin.Name), desc.vMin.SQLType))
	cols = append(cols, fmt.Sprintf("%s %s NOT NULL DEFAULT %s",
		b.dia.quoteIdentifier(desc.vMax.Name), desc.vMax.SQLType, desc.vMax.Default))
	for _, c := range desc.physCols {
		cols = append(cols, fmt.Sprintf("%s %s", b.dia.quoteIdentifier(c.Name), c.SQLType))
	}
	for _, c := range desc.idxPhysCols {
		cols = append(cols, fmt.Sprintf("%s %s", b.dia.quoteIdentifier(c.Name), c.SQLType))
	}
	pkNames := make([]string, 0, len(desc.rowidCols)+1)
	for _, c := range desc.rowidCols {
		pkNames = append(pkNames, b.dia.quoteIdentifier(c.Name))
	}
	pkNames = append(pkNames, b.dia.quoteIdentifier(desc.vMin.Name))
	cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkNames, ", ")))

	sql := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", b.dia.quoteIdentifier(b.StorageName()), strings.Join(cols, ",\n  "))
	b.logStmt("create", sql)
	if _, err := conn.ExecContext(ctx, sql); err != nil {
		return storeerrors.NewStorageError("create "+b.StorageName(), err)
	}

	for _, idx := range desc.idxDefs {
		idxSQL := b.dia.createIndexSQL(idx, b.StorageName())
		b.logStmt("create_index", idxSQL)
		if _, err := conn.ExecContext(ctx, idxSQL); err != nil {
			return storeerrors.NewStorageError("create index "+idx.Name, err)
		}
	}
	return nil
}

// Drop issues DROP TABLE for the backing relation.
func (b *Base) Drop(ctx context.Context, conn Conn) error {
	sql := "DROP TABLE " + b.dia.quoteIdentifier(b.StorageName())
	b.logStmt("drop", sql)
	if _, err := conn.ExecContext(ctx, sql); err != nil {
		return storeerrors.NewStorageError("drop "+b.StorageName(), err)
	}
	return nil
}

// AddColumn issues ALTER TABLE ADD COLUMN for col's value storage column,
// plus its errormsg/errortype companions when col is computed, then
// rebuilds the descriptor. col must already be marked IsStored.
func (b *Base) AddColumn(ctx context.Context, conn Conn, col *catalog.Column) error {
	if !col.IsStored {
		return &storeerrors.SchemaEvolutionError{Table: b.StorageName(), Err: fmt.Errorf("column %q is not stored", col.Name)}
	}
	if existing, ok := b.columnByID(col.ID); ok && existing != col {
		return &storeerrors.SchemaEvolutionError{
			Table: b.StorageName(),
			Err:   fmt.Errorf("storage name %q already allocated to column %q", col.StorageName(), existing.Name),
		}
	}
	col.CreateBackingColumns()

	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		b.dia.quoteIdentifier(b.StorageName()), b.dia.quoteIdentifier(col.Backing.ValueName), col.Type.ToSQL(b.dia.driver))
	b.logStmt("add_column", sql)
	if _, err := conn.ExecContext(ctx, sql); err != nil {
		return &storeerrors.SchemaEvolutionError{Table: b.StorageName(), Err: err}
	}

	if col.IsComputed {
		for _, name := range []string{col.Backing.ErrorMsgName, col.Backing.ErrorTypeName} {
			sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s DEFAULT NULL",
				b.dia.quoteIdentifier(b.StorageName()), b.dia.quoteIdentifier(name), b.dia.stringType())
			b.logStmt("add_column", sql)
			if _, err := conn.ExecContext(ctx, sql); err != nil {
				return &storeerrors.SchemaEvolutionError{Table: b.StorageName(), Err: err}
			}
		}
	}
	if col.IsIndexed {
		sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			b.dia.quoteIdentifier(b.StorageName()), b.dia.quoteIdentifier(col.Backing.IndexName), b.dia.blobType())
		b.logStmt("add_column", sql)
		if _, err := conn.ExecContext(ctx, sql); err != nil {
			return &storeerrors.SchemaEvolutionError{Table: b.StorageName(), Err: err}
		}
	}

	b.rebuild()
	log.Printf("store: added columns for %q to %s", col.Name, b.StorageName())
	return nil
}

// DropColumn issues ALTER TABLE DROP COLUMN for col's storage columns, then
// rebuilds the descriptor. A nil col skips the DDL and only rebuilds —
// callers use that after any structural change that bypassed AddColumn.
func (b *Base) DropColumn(ctx context.Context, conn Conn, col *catalog.Column) error {
	if col == nil {
		b.rebuild()
		return nil
	}
	names := []string{col.StorageName()}
	if col.IsComputed {
		names = append(names, col.ErrorMsgStorageName(), col.ErrorTypeStorageName())
	}
	if col.IsIndexed {
		names = append(names, col.IndexStorageName())
	}
	for _, name := range names {
		sql := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", b.dia.quoteIdentifier(b.StorageName()), b.dia.quoteIdentifier(name))
		b.logStmt("drop_column", sql)
		if _, err := conn.ExecContext(ctx, sql); err != nil {
			return &storeerrors.SchemaEvolutionError{Table: b.StorageName(), Err: err}
		}
	}
	b.TV.RemoveColumn(col.Name)
	b.rebuild()
	return nil
}
