package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kasuganosora/pixelstore/execplan"
	"github.com/kasuganosora/pixelstore/storeerrors"
)

// InsertRows drains plan, converting each produced row into a table row via
// plan.RowBuilder(), and bulk-inserts them in sub-batches of
// Cfg.Store.BatchSize. vMin, when non-nil, overrides the v_min value
// carried in each row's own pk tuple — used when a base table's insert
// must stamp every new row with the table's current version rather than
// whatever version the row happened to be planned at.
//
// Returns the number of rows inserted, the number of per-column exceptions
// captured, and the set of column ids that had at least one exception
// across the whole call. That set accumulates only for the duration of one
// InsertRows call; a later call starts fresh, and a caller tracking a
// running total across inserts owns the union itself.
//
// The plan is closed on every exit path. Row-level exceptions never abort
// the insert; they are materialized into the owning column's error
// columns. Backend errors propagate, and the caller rolls back.
func (b *Base) InsertRows(ctx context.Context, conn Conn, plan execplan.Plan, vMin *int64) (numRows int, numExcs int, colsWithExcs map[int32]struct{}, err error) {
	if err := plan.Open(ctx); err != nil {
		return 0, 0, nil, storeerrors.NewStorageError("insert: open plan", err)
	}
	defer plan.Close()

	b.mu.Lock()
	desc := b.desc
	b.mu.Unlock()

	pkCols := desc.pkColumns()
	colsWithExcs = make(map[int32]struct{})
	// the progress reporter is created lazily, on the first row
	var progress *progressReporter
	defer func() {
		if progress != nil {
			progress.close()
		}
	}()

	builder := plan.RowBuilder()
	batchSize := b.Cfg.Store.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	for {
		batch, nextErr := plan.NextBatch(ctx)
		if errors.Is(nextErr, execplan.ErrExhausted) {
			break
		}
		if nextErr != nil {
			return numRows, numExcs, colsWithExcs, storeerrors.NewStorageError("insert: next batch", nextErr)
		}
		numRows += len(batch)

		for start := 0; start < len(batch); start += batchSize {
			end := start + batchSize
			if end > len(batch) {
				end = len(batch)
			}
			sub := batch[start:end]

			rows := make([]map[string]any, 0, len(sub))
			for _, row := range sub {
				tr, rowExcs, err := builder.CreateTableRow(row, colsWithExcs)
				if err != nil {
					return numRows, numExcs, colsWithExcs, storeerrors.NewStorageError("insert: build row", err)
				}
				numExcs += rowExcs
				physRow, err := b.tableRowToPhysical(desc, pkCols, row, tr, vMin)
				if err != nil {
					return numRows, numExcs, colsWithExcs, err
				}
				rows = append(rows, physRow)
				if progress == nil {
					progress = newProgressReporter("insert "+b.StorageName(), b.Cfg.Store.ProgressLogEvery)
				}
				progress.update(1)
			}

			if err := b.bulkInsert(ctx, conn, desc, pkCols, rows); err != nil {
				return numRows, numExcs, colsWithExcs, err
			}
		}
	}

	return numRows, numExcs, colsWithExcs, nil
}

// tableRowToPhysical assembles one physical row (storage column name ->
// value) from a TableRow, starting from the row's own pk tuple and
// overlaying every value/exception column's storage columns. An excepted
// column stores NULL in its value column plus (when computed) its
// truncated error message and type name.
func (b *Base) tableRowToPhysical(desc *descriptor, pkCols []SysColumn, row execplan.Row, tr *execplan.TableRow, vMin *int64) (map[string]any, error) {
	pk := row.PK()
	if len(pk) != len(pkCols) {
		storeerrors.Raise("pk length mismatch: got %d want %d", len(pk), len(pkCols))
	}
	physRow := make(map[string]any, len(pkCols)+2*len(tr.Values)+3*len(tr.Excs))
	for i, c := range pkCols {
		if c.Name == "v_min" && vMin != nil {
			physRow[c.Name] = *vMin
			continue
		}
		physRow[c.Name] = pk[i]
	}

	for colID, val := range tr.Values {
		col, ok := b.columnByID(colID)
		if !ok {
			storeerrors.Raise("insert: unknown column id %d", colID)
		}
		physRow[col.Backing.ValueName] = col.NormalizeStored(val)
	}
	for colID, excErr := range tr.Excs {
		col, ok := b.columnByID(colID)
		if !ok {
			storeerrors.Raise("insert: unknown column id %d", colID)
		}
		physRow[col.Backing.ValueName] = nil
		if col.IsComputed {
			physRow[col.Backing.ErrorMsgName] = storeerrors.TruncateMessage(excErr.Error(), b.Cfg.Store.MaxErrorMessageBytes)
			physRow[col.Backing.ErrorTypeName] = storeerrors.TypeName(excErr)
		}
	}
	return physRow, nil
}

// bulkInsert issues one multi-row INSERT for rows, whose column set is the
// union of pk columns and every value/error physical column — present on
// every row (possibly NULL), so a single statement shape covers the whole
// sub-batch.
func (b *Base) bulkInsert(ctx context.Context, conn Conn, desc *descriptor, pkCols []SysColumn, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	colNames := make([]string, 0, len(pkCols)+len(desc.physCols))
	for _, c := range pkCols {
		colNames = append(colNames, c.Name)
	}
	for _, c := range desc.physCols {
		colNames = append(colNames, c.Name)
	}

	quotedNames := make([]string, len(colNames))
	for i, n := range colNames {
		quotedNames[i] = b.dia.quoteIdentifier(n)
	}

	var valueGroups []string
	var args []any
	argIdx := 1
	for _, row := range rows {
		placeholders := make([]string, len(colNames))
		for i, n := range colNames {
			placeholders[i] = b.dia.placeholder(argIdx)
			argIdx++
			args = append(args, row[n])
		}
		valueGroups = append(valueGroups, "("+strings.Join(placeholders, ", ")+")")
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		b.dia.quoteIdentifier(b.StorageName()), strings.Join(quotedNames, ", "), strings.Join(valueGroups, ", "))
	b.logStmt("insert", sql)
	if _, err := conn.ExecContext(ctx, sql, args...); err != nil {
		return storeerrors.NewStorageError("insert "+b.StorageName(), err)
	}
	return nil
}
