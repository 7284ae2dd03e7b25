package storeerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncateMessage(t *testing.T) {
	require.Equal(t, "short", TruncateMessage("short", 100))
	got := TruncateMessage("0123456789", 5)
	require.LessOrEqual(t, len(got), 5+len(truncationMarker))
	require.Contains(t, got, truncationMarker)
}

type namedErr struct{ msg string }

func (e *namedErr) Error() string { return e.msg }

func TestTypeNameStripsPointerAndPackage(t *testing.T) {
	require.Equal(t, "namedErr", TypeName(&namedErr{msg: "x"}))
	require.Equal(t, "errorString", TypeName(errors.New("plain")))
	require.Equal(t, "", TypeName(nil))
}

func TestStorageErrorWrapsAndUnwraps(t *testing.T) {
	base := errors.New("boom")
	se := NewStorageError("create", base)
	require.ErrorIs(t, se, base)
	require.Contains(t, se.Error(), "create")
}

func TestRaisePanicsWithInvariantViolation(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		iv, ok := r.(*InvariantViolation)
		require.True(t, ok)
		require.Contains(t, iv.Error(), "pk length mismatch")
	}()
	Raise("pk length mismatch: got %d want %d", 1, 2)
}
