package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/pixelstore/catalog"
	"github.com/kasuganosora/pixelstore/config"
	"github.com/kasuganosora/pixelstore/execplan"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	cfg.Store.BatchSize = 2
	return cfg
}

func newPlainColumn(id int32, name string, typ catalog.ColumnType) *catalog.Column {
	return &catalog.Column{ID: id, Name: name, Type: typ, IsStored: true}
}

func newComputedColumn(id int32, name string, typ catalog.ColumnType) *catalog.Column {
	return &catalog.Column{ID: id, Name: name, Type: typ, IsStored: true, IsComputed: true}
}

func TestTableCreateInsertAndDelete(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	amount := newPlainColumn(1, "amount", catalog.TypeInt)
	label := newComputedColumn(2, "label", catalog.TypeString)
	tv := catalog.NewTableVersion(uuid.New(), 1, catalog.KindTable, nil, []*catalog.Column{amount, label})

	base := NewTable(tv, testConfig(), nil)
	require.NoError(t, base.Create(ctx, db))

	builder := execplan.NewMemRowBuilder([]execplan.ColumnSlot{
		{ColumnID: 1, Slot: 0},
		{ColumnID: 2, Slot: 1},
	})
	rows := []execplan.Row{
		execplan.NewMemRow([]any{int64(1), int64(1)}, []execplan.SlotValue{{Val: int64(10)}, {Val: "ten"}}),
		execplan.NewMemRow([]any{int64(2), int64(1)}, []execplan.SlotValue{{Val: int64(20)}, {Exc: errLabelFailed}}),
	}
	plan := execplan.NewMemPlan(builder, [][]execplan.Row{rows})

	numRows, numExcs, colsWithExcs, err := base.InsertRows(ctx, db, plan, nil)
	require.NoError(t, err)
	require.Equal(t, 2, numRows)
	require.Equal(t, 1, numExcs)
	require.Contains(t, colsWithExcs, int32(2))

	rs, err := db.QueryContext(ctx, "SELECT rowid, v_min, v_max, col_1, col_2, col_2_errortype FROM "+base.StorageName()+" ORDER BY rowid")
	require.NoError(t, err)
	defer rs.Close()

	var gotRows int
	for rs.Next() {
		gotRows++
		var rowid, vMin, vMax, amt sql.NullInt64
		var lbl, errType sql.NullString
		require.NoError(t, rs.Scan(&rowid, &vMin, &vMax, &amt, &lbl, &errType))
		require.Equal(t, int64(1), vMin.Int64)
		require.Equal(t, catalog.MaxVersion, vMax.Int64)
		if rowid.Int64 == 2 {
			require.False(t, lbl.Valid)
			require.Equal(t, "labelError", errType.String)
		}
	}
	require.Equal(t, 2, gotRows)

	// the delete happens in table version 2, scoped to rows live at 1
	tv.Version = 2
	n, err := base.DeleteRows(ctx, db, 1, Eq("col_1", int64(10)))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	row := db.QueryRowContext(ctx, "SELECT v_max FROM "+base.StorageName()+" WHERE rowid = 1")
	var vMax int64
	require.NoError(t, row.Scan(&vMax))
	require.Equal(t, int64(2), vMax)
}

func TestAddAndDropColumn(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	tv := catalog.NewTableVersion(uuid.New(), 1, catalog.KindTable, nil, nil)
	base := NewTable(tv, testConfig(), nil)
	require.NoError(t, base.Create(ctx, db))

	newCol := newComputedColumn(5, "score", catalog.TypeFloat)
	require.NoError(t, tv.AddColumn(newCol))
	require.NoError(t, base.AddColumn(ctx, db, newCol))

	_, err := db.ExecContext(ctx, "INSERT INTO "+base.StorageName()+" (rowid, v_min, v_max, col_5) VALUES (1, 1, ?, 3.5)", catalog.MaxVersion)
	require.NoError(t, err)

	require.NoError(t, base.DropColumn(ctx, db, newCol))
	_, ok := tv.Column("score")
	require.False(t, ok)

	// a nil column is a descriptor-rebuild-only call
	require.NoError(t, base.DropColumn(ctx, db, nil))
}

func TestViewDeletePropagatesFromCurrentBaseVersion(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	baseTV := catalog.NewTableVersion(uuid.New(), 1, catalog.KindTable, nil, nil)
	baseStore := NewTable(baseTV, testConfig(), nil)
	require.NoError(t, baseStore.Create(ctx, db))

	viewTV := catalog.NewTableVersion(uuid.New(), 1, catalog.KindView, baseTV, nil)
	viewStore := NewView(viewTV, baseStore, testConfig(), nil)
	require.NoError(t, viewStore.Create(ctx, db))

	_, err := db.ExecContext(ctx, "INSERT INTO "+baseStore.StorageName()+" (rowid, v_min, v_max) VALUES (1, 1, ?)", catalog.MaxVersion)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO "+viewStore.StorageName()+" (rowid, v_min, v_max) VALUES (1, 1, ?)", catalog.MaxVersion)
	require.NoError(t, err)

	// base row deleted in base version 2: bump the catalog's notion of the
	// base's current version the same way the surrounding system would
	// before committing that delete, then propagate it into the view.
	baseTV.Version = 2
	_, err = baseStore.DeleteRows(ctx, db, 1, True())
	require.NoError(t, err)

	viewTV.Version = 2
	n, err := viewStore.DeleteRows(ctx, db, 1, True())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestComponentViewRebindsPosColumn(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)

	baseTV := catalog.NewTableVersion(uuid.New(), 1, catalog.KindTable, nil, nil)
	baseStore := NewTable(baseTV, testConfig(), nil)
	require.NoError(t, baseStore.Create(ctx, db))

	posCol := &catalog.Column{ID: 100, Name: "pos", Type: catalog.TypeInt, IsStored: false}
	cvTV := catalog.NewTableVersion(uuid.New(), 1, catalog.KindComponentView, baseTV, []*catalog.Column{posCol})
	cvStore := NewView(cvTV, baseStore, testConfig(), nil)
	require.NoError(t, cvStore.Create(ctx, db))

	got, ok := cvTV.Column("pos")
	require.True(t, ok)
	require.Equal(t, "pos_1", got.Backing.ValueName)

	// stacking a second component view over the first: its pos column must
	// not collide with pos_1.
	pos2Col := &catalog.Column{ID: 101, Name: "pos", Type: catalog.TypeInt, IsStored: false}
	cv2TV := catalog.NewTableVersion(uuid.New(), 1, catalog.KindComponentView, cvTV, []*catalog.Column{pos2Col})
	cv2Store := NewView(cv2TV, cvStore, testConfig(), nil)
	require.NoError(t, cv2Store.Create(ctx, db))

	got2, ok := cv2TV.Column("pos")
	require.True(t, ok)
	require.Equal(t, "pos_2", got2.Backing.ValueName)
}

var errLabelFailed = &labelError{}

type labelError struct{}

func (e *labelError) Error() string { return "label computation failed" }
