package execplan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemPlanRestartable(t *testing.T) {
	builder := NewMemRowBuilder([]ColumnSlot{{ColumnID: 1, Slot: 0}})
	batches := [][]Row{
		{NewMemRow([]any{int64(1)}, []SlotValue{{Val: "a"}})},
		{NewMemRow([]any{int64(2)}, []SlotValue{{Val: "b"}})},
	}
	plan := NewMemPlan(builder, batches)

	ctx := context.Background()
	require.NoError(t, plan.Open(ctx))
	b1, err := plan.NextBatch(ctx)
	require.NoError(t, err)
	require.Len(t, b1, 1)
	_, err = plan.NextBatch(ctx)
	require.NoError(t, err)
	_, err = plan.NextBatch(ctx)
	require.ErrorIs(t, err, ErrExhausted)
	require.NoError(t, plan.Close())

	// restart: replays from the beginning
	require.NoError(t, plan.Open(ctx))
	b1again, err := plan.NextBatch(ctx)
	require.NoError(t, err)
	require.Equal(t, b1, b1again)
}

func TestMemRowBuilderRecordsExceptions(t *testing.T) {
	builder := NewMemRowBuilder([]ColumnSlot{{ColumnID: 5, Slot: 0}})
	row := NewMemRow([]any{int64(1)}, []SlotValue{{Exc: errors.New("bad")}})
	colsWithExcs := map[int32]struct{}{}

	tr, numExcs, err := builder.CreateTableRow(row, colsWithExcs)
	require.NoError(t, err)
	require.Equal(t, 1, numExcs)
	require.Contains(t, colsWithExcs, int32(5))
	require.Equal(t, "bad", tr.Excs[5].Error())
	require.NotContains(t, tr.Values, int32(5))
}
