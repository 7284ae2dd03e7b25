// Package embedindex is a Badger-backed side-store for embedding vectors,
// keyed by a row's primary key. store.Base writes here when a computed
// column is indexed, in addition to the raw-vector column it also carries
// in the backing relation.
package embedindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const keyPrefix = "emb:"

// Store is a Badger-backed embedding vector side-index.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a Badger store at dir. Pass "" for an
// in-memory store, useful in tests.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("embedindex: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key encodes tableID + columnID + the row's primary-key tuple into a
// single sortable Badger key: emb:<tableID uuid string>:<columnID>:<pk0>|<pk1>|...
func key(tableID uuid.UUID, columnID int32, pk []any) []byte {
	var sb strings.Builder
	sb.WriteString(keyPrefix)
	sb.WriteString(tableID.String())
	sb.WriteByte(':')
	fmt.Fprintf(&sb, "%d", columnID)
	sb.WriteByte(':')
	for i, v := range pk {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	return []byte(sb.String())
}

// EncodeVector serializes a float32 embedding as fixed-width little-endian
// bytes, 4 bytes per element, with no separate length prefix needed since
// both Badger values and SQL blobs are already length-delimited. It is the
// wire format for every persisted embedding, here and in the backing
// relation's raw-index column.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// Put writes the embedding for one row's indexed column, addressed by the
// table id, column id, and primary-key tuple (rowid columns ++ v_min), the
// same addressing scheme store.Base uses for LoadColumn updates.
func (s *Store) Put(tableID uuid.UUID, columnID int32, pk []any, vec []float32) error {
	k := key(tableID, columnID, pk)
	v := EncodeVector(vec)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

// Get reads back an embedding previously written by Put. Returns
// (nil, false, nil) if no value has been stored for this pk.
func (s *Store) Get(tableID uuid.UUID, columnID int32, pk []any) ([]float32, bool, error) {
	k := key(tableID, columnID, pk)
	var vec []float32
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			vec = DecodeVector(val)
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("embedindex: get: %w", err)
	}
	return vec, found, nil
}
