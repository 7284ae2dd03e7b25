package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kasuganosora/pixelstore/catalog"
	"github.com/kasuganosora/pixelstore/embedindex"
	"github.com/kasuganosora/pixelstore/execplan"
	"github.com/kasuganosora/pixelstore/storeerrors"
)

// LoadColumn back-fills col's storage column(s) from plan, one UPDATE per
// row addressed by its pk tuple. valueSlot/embeddingSlot are the plan row
// slots col's value and (if indexed) embedding occupy; pass -1 for a slot
// that doesn't apply to col. Returns the number of rows whose value slot
// carried an exception.
//
// A computed column's exception is captured (NULL value, errortype,
// truncated errormsg) and never aborts the call. An indexed column's
// embedding must never carry an exception; StrictEmbeddingErrors controls
// whether a violation is fatal (the default) or merely skipped-and-logged.
func (b *Base) LoadColumn(ctx context.Context, conn Conn, col *catalog.Column, plan execplan.Plan, valueSlot, embeddingSlot int) (int, error) {
	if err := plan.Open(ctx); err != nil {
		return 0, storeerrors.NewStorageError("load_column: open plan", err)
	}
	defer plan.Close()

	b.mu.Lock()
	pkCols := b.desc.pkColumns()
	b.mu.Unlock()

	numExcs := 0
	progress := newProgressReporter(fmt.Sprintf("load_column %s on %s", col.Name, b.StorageName()), b.Cfg.Store.ProgressLogEvery)
	defer progress.close()

	for {
		batch, err := plan.NextBatch(ctx)
		if errors.Is(err, execplan.ErrExhausted) {
			break
		}
		if err != nil {
			return numExcs, storeerrors.NewStorageError("load_column: next batch", err)
		}

		for _, row := range batch {
			values := map[string]any{}

			if col.IsComputed {
				if row.HasExc(valueSlot) {
					numExcs++
					exc := row.GetExc(valueSlot)
					values[col.Backing.ValueName] = nil
					values[col.Backing.ErrorTypeName] = storeerrors.TypeName(exc)
					values[col.Backing.ErrorMsgName] = storeerrors.TruncateMessage(exc.Error(), b.Cfg.Store.MaxErrorMessageBytes)
				} else {
					values[col.Backing.ValueName] = col.NormalizeStored(row.GetStoredVal(valueSlot))
				}
			}

			if col.IsIndexed {
				if row.HasExc(embeddingSlot) {
					if b.Cfg.Store.StrictEmbeddingErrors {
						storeerrors.Raise("embedding column %q: unexpected exception in indexed slot: %v", col.Name, row.GetExc(embeddingSlot))
					}
					log.Printf("store: embedding column %q: skipping row with unexpected exception: %v", col.Name, row.GetExc(embeddingSlot))
				} else {
					raw := row.Value(embeddingSlot)
					if vec, ok := raw.([]float32); ok {
						values[col.Backing.IndexName] = embedindex.EncodeVector(vec)
						if b.Embed != nil {
							if err := b.Embed.Put(b.TV.ID, col.ID, row.PK(), vec); err != nil {
								return numExcs, storeerrors.NewStorageError("load_column: embed mirror", err)
							}
						}
					} else {
						values[col.Backing.IndexName] = raw
					}
				}
			}

			if err := b.updateRow(ctx, conn, pkCols, row.PK(), values); err != nil {
				return numExcs, err
			}
			progress.update(1)
		}
	}

	return numExcs, nil
}

// updateRow issues a single-row UPDATE setting every (name -> value) pair
// in values, scoped to the row's pk tuple.
func (b *Base) updateRow(ctx context.Context, conn Conn, pkCols []SysColumn, pk []any, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	if len(pk) != len(pkCols) {
		storeerrors.Raise("pk length mismatch: got %d want %d", len(pk), len(pkCols))
	}

	setParts := make([]string, 0, len(values))
	args := make([]any, 0, len(values)+len(pkCols))
	argIdx := 1
	for name, val := range values {
		setParts = append(setParts, fmt.Sprintf("%s = %s", b.dia.quoteIdentifier(name), b.dia.placeholder(argIdx)))
		argIdx++
		args = append(args, val)
	}
	whereParts := make([]string, len(pkCols))
	for i, c := range pkCols {
		whereParts[i] = fmt.Sprintf("%s = %s", b.dia.quoteIdentifier(c.Name), b.dia.placeholder(argIdx))
		argIdx++
		args = append(args, pk[i])
	}

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		b.dia.quoteIdentifier(b.StorageName()), strings.Join(setParts, ", "), strings.Join(whereParts, " AND "))
	b.logStmt("load_column", sql)
	if _, err := conn.ExecContext(ctx, sql, args...); err != nil {
		return storeerrors.NewStorageError("load_column "+b.StorageName(), err)
	}
	return nil
}
