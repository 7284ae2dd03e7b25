package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTableStorageNameDeterministic(t *testing.T) {
	id := uuid.New()
	n1 := TableStorageName(KindTable, id)
	n2 := TableStorageName(KindTable, id)
	require.Equal(t, n1, n2)
	require.Len(t, n1, len("tbl_")+32)
	require.Regexp(t, "^tbl_[0-9a-f]{32}$", n1)

	vn := TableStorageName(KindView, id)
	require.Regexp(t, "^view_[0-9a-f]{32}$", vn)
}

func TestColumnStorageNamesStableAcrossGenerations(t *testing.T) {
	col := &Column{ID: 7, Name: "c", IsStored: true, IsComputed: true, IsIndexed: true}
	b1 := col.CreateBackingColumns()
	b2 := col.CreateBackingColumns()
	require.Equal(t, b1.ValueName, b2.ValueName)
	require.Equal(t, b1.ErrorMsgName, b2.ErrorMsgName)
	require.Equal(t, b1.ErrorTypeName, b2.ErrorTypeName)
	require.Equal(t, b1.IndexName, b2.IndexName)
	require.Equal(t, 2, col.Generation)
}

func TestColumnInjectiveOverTableAndColumnID(t *testing.T) {
	// two different tables' physical relation names never collide, and two
	// different columns' storage names within one relation never collide.
	id1, id2 := uuid.New(), uuid.New()
	require.NotEqual(t, TableStorageName(KindTable, id1), TableStorageName(KindTable, id2))

	c1 := &Column{ID: 1}
	c2 := &Column{ID: 2}
	require.NotEqual(t, c1.StorageName(), c2.StorageName())
}

func TestComponentViewRebindPos(t *testing.T) {
	posCol := &Column{ID: 99, Name: "pos"}
	baseTV := NewTableVersion(uuid.New(), 0, KindTable, nil, nil)
	tv := NewTableVersion(uuid.New(), 0, KindComponentView, baseTV, []*Column{posCol})
	require.Equal(t, 1, tv.Depth)

	newBacking := &ColumnBacking{ValueName: "pos_1"}
	tv.RebindColumn("pos", newBacking)
	c, ok := tv.Column("pos")
	require.True(t, ok)
	require.Equal(t, "pos_1", c.Backing.ValueName)
}
