package chain

import (
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
)

//MemStore keeps the chain in an immutable radix tree that lives purely in
//memory. Every transaction works on a point-in-time snapshot, committing
//replaces the tree: the last writer wins.
type MemStore struct {
	tree *iradix.Tree
	mu   sync.Mutex
}

//NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{tree: iradix.New()}
}

//CreateTx takes a snapshot of the store
func (s *MemStore) CreateTx(writable bool) (tx Tx, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{s: s, snapshot: s.tree.Txn(), writable: writable}, nil
}

//Close is a no-op
func (s *MemStore) Close() (err error) { return nil }

type memTx struct {
	s        *MemStore
	snapshot *iradix.Txn
	writable bool
}

func (tx *memTx) set(k, v []byte) (err error) {
	if !tx.writable {
		return ErrReadOnlyTx
	}

	tx.snapshot.Insert(k, v)
	return nil
}

func (tx *memTx) WriteBlock(b *Block) (err error) {
	d, err := encode(b)
	if err != nil {
		return err
	}

	return tx.set(blockKey(b.Index), d)
}

func (tx *memTx) ReadBlocks(f func(b *Block) error) (err error) {
	tx.snapshot.Root().WalkPrefix(blockPrefix, func(k []byte, v interface{}) bool {
		var b *Block
		b, err = decodeBlock(v.([]byte))
		if err != nil {
			return true
		}

		err = f(b)
		return err != nil
	})

	return
}

func (tx *memTx) WriteMarker(m TamperMarker) (err error) {
	d, err := encode(&m)
	if err != nil {
		return err
	}

	return tx.set(markerKey, d)
}

func (tx *memTx) ReadMarker() (m TamperMarker, err error) {
	v, ok := tx.snapshot.Get(markerKey)
	if !ok {
		return m, nil
	}

	return decodeMarker(v.([]byte))
}

func (tx *memTx) Commit() (err error) {
	if !tx.writable {
		return nil
	}

	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	tx.s.tree = tx.snapshot.Commit()
	return nil
}

func (tx *memTx) Discard() {}
