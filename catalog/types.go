// Package catalog defines the contracts the store layer consumes: the
// TableVersion / Column shape of a logical table, view, or component view,
// and the deterministic storage-name derivation the store relies on to
// reopen a backing relation unchanged across processes.
package catalog

import (
	"encoding/hex"
	"math"

	"github.com/google/uuid"
)

// MaxVersion is the sentinel v_max value meaning "still live".
const MaxVersion int64 = math.MaxInt64

// TableKind discriminates a plain table from a view and a component view.
type TableKind int

const (
	KindTable TableKind = iota
	KindView
	KindComponentView
)

func (k TableKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindComponentView:
		return "component_view"
	default:
		return "unknown"
	}
}

// ColumnType is the logical type of a user column. It only distinguishes the
// categories the store's index policy and storage layout care about; it is
// not a full SQL type system.
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeFloat
	TypeBool
	TypeString
	TypeTimestamp
	TypeJSON
	TypeImage
	TypeVideo
)

// IsScalarType reports whether the type is a plain scalar (int/float/bool/
// string/timestamp) eligible for a per-column index.
func (t ColumnType) IsScalarType() bool {
	switch t {
	case TypeInt, TypeFloat, TypeBool, TypeString, TypeTimestamp:
		return true
	default:
		return false
	}
}

// IsVideoType reports whether the type holds a video path/URL.
func (t ColumnType) IsVideoType() bool { return t == TypeVideo }

// IsImageType reports whether the type holds an image path/URL.
func (t ColumnType) IsImageType() bool { return t == TypeImage }

// ToSQL returns the backend-specific column type for this logical type.
// driver is one of "sqlite", "mysql", "postgres".
func (t ColumnType) ToSQL(driver string) string {
	switch t {
	case TypeInt:
		return "BIGINT"
	case TypeFloat:
		return "DOUBLE PRECISION"
	case TypeBool:
		return "BOOLEAN"
	case TypeTimestamp:
		return "BIGINT"
	case TypeJSON:
		if driver == "postgres" {
			return "JSONB"
		}
		return "TEXT"
	case TypeImage, TypeVideo, TypeString:
		return "TEXT"
	default:
		return "TEXT"
	}
}

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeJSON:
		return "json"
	case TypeImage:
		return "image"
	case TypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// hex32 renders id as a 32-char lowercase hex string with no separators.
func hex32(id uuid.UUID) string {
	return hex.EncodeToString(id[:])
}

// TableStorageName derives the backing relation name for a TableVersion id,
// stable across reopens: tbl_<hex32> for plain tables, view_<hex32> for
// views and component views.
func TableStorageName(kind TableKind, id uuid.UUID) string {
	if kind == KindTable {
		return "tbl_" + hex32(id)
	}
	return "view_" + hex32(id)
}
