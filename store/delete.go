package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kasuganosora/pixelstore/catalog"
	"github.com/kasuganosora/pixelstore/storeerrors"
)

// DeleteRows marks rows live at version and matching where as deleted at
// the table's current version (v_max = TV.Version), never physically
// removing them. Pass store.True() for where to match every live row.
// Returns the number of rows affected. Calling it again with the same
// arguments affects zero rows: the first call's finite v_max takes every
// matched row out of the visibility window.
//
// A plain table matches directly against its own v_min/v_max. A view or
// component view only propagates a delete for rows whose base row was
// deleted in the base table's *current* version — an older base delete must
// not be re-propagated into a view created after it, which scoping the
// subquery to the base's current v_max enforces.
func (b *Base) DeleteRows(ctx context.Context, conn Conn, version int64, where Predicate) (int64, error) {
	b.mu.Lock()
	desc := b.desc
	b.mu.Unlock()

	// placeholder 1 is reserved for the SET v_max value; the visibility and
	// caller predicates are rendered starting at 2.
	argIdx := 2
	visFrag, visArgs := b.deleteVisibilityClause(version, &argIdx)
	whereFrag, whereArgs := where.render(b.dia, &argIdx)

	sql := fmt.Sprintf("UPDATE %s SET %s = %s WHERE (%s) AND (%s)",
		b.dia.quoteIdentifier(b.StorageName()), b.dia.quoteIdentifier(desc.vMax.Name), b.dia.placeholder(1),
		visFrag, whereFrag)
	args := append([]any{b.TV.Version}, append(visArgs, whereArgs...)...)

	b.logStmt("delete", sql)
	res, err := conn.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, storeerrors.NewStorageError("delete "+b.StorageName(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeerrors.NewStorageError("delete "+b.StorageName()+": rows affected", err)
	}
	return n, nil
}

// deleteVisibilityClause renders the kind-specific "was this row live at
// version" predicate, consuming placeholders starting at *argIdx.
func (b *Base) deleteVisibilityClause(version int64, argIdx *int) (string, []any) {
	switch b.TV.Kind {
	case catalog.KindTable:
		vminPh := b.dia.placeholder(*argIdx)
		*argIdx++
		vmaxPh := b.dia.placeholder(*argIdx)
		*argIdx++
		return fmt.Sprintf("%s <= %s AND %s = %s",
				b.dia.quoteIdentifier("v_min"), vminPh, b.dia.quoteIdentifier("v_max"), vmaxPh),
			[]any{version, catalog.MaxVersion}

	case catalog.KindView, catalog.KindComponentView:
		if b.base == nil {
			storeerrors.Raise("view %s has no base store", b.TV.ID)
		}
		// Join identity is the base's rowid columns only: a component view's
		// trailing pos column is part of its own rowid but has no
		// counterpart in the base relation, so it plays no role in
		// visibility beyond identity.
		baseRowidCols := b.base.RowIDColumns()
		quoted := make([]string, len(baseRowidCols))
		for i, c := range baseRowidCols {
			quoted[i] = b.dia.quoteIdentifier(c.Name)
		}

		baseVersionPh := b.dia.placeholder(*argIdx)
		*argIdx++
		vminPh := b.dia.placeholder(*argIdx)
		*argIdx++
		vmaxPh := b.dia.placeholder(*argIdx)
		*argIdx++

		subquery := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			strings.Join(quoted, ", "), b.dia.quoteIdentifier(b.base.StorageName()),
			b.dia.quoteIdentifier("v_max"), baseVersionPh)
		frag := fmt.Sprintf("(%s) IN (%s) AND %s <= %s AND %s = %s",
			strings.Join(quoted, ", "), subquery,
			b.dia.quoteIdentifier("v_min"), vminPh,
			b.dia.quoteIdentifier("v_max"), vmaxPh)
		return frag, []any{b.base.TV.Version, version, catalog.MaxVersion}

	default:
		storeerrors.Raise("unknown table kind %v", b.TV.Kind)
		return "", nil
	}
}
