package store

import (
	"fmt"

	"github.com/kasuganosora/pixelstore/catalog"
)

// SysColumn is one of the store's system columns: a rowid/pos column, or
// v_min/v_max.
type SysColumn struct {
	Name    string
	SQLType string
	// Default is a raw SQL default-value expression (e.g. for v_max's
	// MAX_VERSION sentinel); empty means no column default.
	Default string
}

// PhysicalColumn is one physical column of a backing relation, whether
// system or user-derived.
type PhysicalColumn struct {
	Name    string
	SQLType string
	Default string
}

// IndexDef is one index the store maintains on a backing relation. Kind is
// "brin", "btree", or "" (plain); brin is only honored on postgres.
type IndexDef struct {
	Name    string
	Columns []string
	Kind    string
}

// descriptor is the full rebuilt physical shape of a relation: its system
// columns, its user-derived physical columns, and its indexes. It is
// recomputed from scratch by (*Base).rebuild on every schema change, never
// patched incrementally.
type descriptor struct {
	rowidCols []SysColumn
	vMin      SysColumn
	vMax      SysColumn
	// physCols holds value/errormsg/errortype columns: everything InsertRows
	// and LoadColumn's scalar path populate.
	physCols []PhysicalColumn
	// idxPhysCols holds the raw-vector storage column for indexed columns:
	// populated only by LoadColumn, never by InsertRows.
	idxPhysCols []PhysicalColumn
	idxDefs     []IndexDef
	colsByID    map[int32]*catalog.Column
}

// sysColumns returns rowid columns ++ [v_min, v_max], the column order the
// composite system-columns index covers.
func (d *descriptor) sysColumns() []SysColumn {
	out := make([]SysColumn, 0, len(d.rowidCols)+2)
	out = append(out, d.rowidCols...)
	out = append(out, d.vMin, d.vMax)
	return out
}

// pkColumns returns rowid columns ++ [v_min], the store's primary key.
func (d *descriptor) pkColumns() []SysColumn {
	out := make([]SysColumn, 0, len(d.rowidCols)+1)
	out = append(out, d.rowidCols...)
	out = append(out, d.vMin)
	return out
}

// buildDescriptor assembles a relation's full physical shape: system
// columns, one or more physical columns per stored catalog column (value,
// and for computed/indexed columns the errormsg/errortype/raw-index
// companions), and the standing index set: one per scalar (or non-computed
// image/video) column, the whole-system-columns composite, and
// block-range-hinted indexes on v_min/v_max. vminIdxKind is "brin" or
// "btree"; non-postgres backends fall back to a plain index either way.
func buildDescriptor(tv *catalog.TableVersion, rowidCols []SysColumn, dia *dialect, maxVersion int64, vminIdxKind string) *descriptor {
	desc := &descriptor{
		rowidCols: rowidCols,
		vMin:      SysColumn{Name: "v_min", SQLType: dia.bigintType()},
		vMax:      SysColumn{Name: "v_max", SQLType: dia.bigintType(), Default: fmt.Sprintf("%d", maxVersion)},
	}

	desc.colsByID = make(map[int32]*catalog.Column, len(tv.Cols))
	var idxs []IndexDef
	for _, col := range tv.Cols {
		col.CreateBackingColumns()
		desc.colsByID[col.ID] = col
		if !col.IsStored {
			continue
		}
		desc.physCols = append(desc.physCols, PhysicalColumn{
			Name:    col.Backing.ValueName,
			SQLType: col.Type.ToSQL(dia.driver),
		})
		if col.IsComputed {
			desc.physCols = append(desc.physCols,
				PhysicalColumn{Name: col.Backing.ErrorMsgName, SQLType: dia.stringType()},
				PhysicalColumn{Name: col.Backing.ErrorTypeName, SQLType: dia.stringType()},
			)
		}
		if col.IsIndexed {
			desc.idxPhysCols = append(desc.idxPhysCols, PhysicalColumn{Name: col.Backing.IndexName, SQLType: dia.blobType()})
		}

		isEligible := col.Type.IsScalarType() || ((col.Type.IsVideoType() || col.Type.IsImageType()) && !col.IsComputed)
		if isEligible {
			idxs = append(idxs, IndexDef{
				Name:    fmt.Sprintf("idx_%d_%s", col.ID, hex32OfTable(tv)),
				Columns: []string{col.Backing.ValueName},
			})
		}
	}

	sysCols := desc.sysColumns()
	sysColNames := make([]string, len(sysCols))
	for i, c := range sysCols {
		sysColNames[i] = c.Name
	}
	idxs = append(idxs, IndexDef{Name: "sys_cols_idx_" + hex32OfTable(tv), Columns: sysColNames})
	idxs = append(idxs, IndexDef{Name: "vmin_idx_" + hex32OfTable(tv), Columns: []string{"v_min"}, Kind: vminIdxKind})
	idxs = append(idxs, IndexDef{Name: "vmax_idx_" + hex32OfTable(tv), Columns: []string{"v_max"}, Kind: vminIdxKind})
	desc.idxDefs = idxs

	return desc
}

// hex32OfTable renders a TableVersion id the same way catalog.TableStorageName
// does: 32 lowercase hex characters, no separators. The id is formatted as a
// byte slice: uuid.UUID implements Stringer, so %x on the value itself would
// hex-encode its hyphenated string form instead.
func hex32OfTable(tv *catalog.TableVersion) string {
	return fmt.Sprintf("%x", tv.ID[:])
}
