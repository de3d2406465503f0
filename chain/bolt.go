package chain

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var (
	boltBucketBlocks = []byte{0x00}
	boltBucketMeta   = []byte{0x01}
)

// BoltStore is a store implementation that keeps the chain in a single Bolt
// database file
type BoltStore struct {
	dir string
	bdb *bolt.DB
}

// MustTempBoltStore will create a store in a temporary directory
func MustTempBoltStore() *BoltStore {
	tmpd, err := ioutil.TempDir("", "civiclink_bolt_")
	if err != nil {
		panic("chain/bolt: " + err.Error())
	}

	s, err := NewBoltStore(tmpd)
	if err != nil {
		panic("chain/bolt: " + err.Error())
	}

	return s
}

// NewBoltStore will initialize a bolt database, the directory must exist
func NewBoltStore(dir string) (s *BoltStore, err error) {
	s = &BoltStore{dir: dir}

	s.bdb, err = bolt.Open(filepath.Join(dir, "civiclink.bolt"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "chain/bolt: failed to open or create database file")
	}

	if err = s.bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucketBlocks)
		if err != nil {
			return err
		}

		_, err = tx.CreateBucketIfNotExists(boltBucketMeta)
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "chain/bolt: failed to create buckets")
	}

	return
}

// CreateTx begins a bolt transaction
func (s *BoltStore) CreateTx(writable bool) (tx Tx, err error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, errors.Wrap(err, "chain/bolt: failed to begin tx")
	}

	return &boltTx{btx}, nil
}

// Close the database file
func (s *BoltStore) Close() error {
	return errors.Wrap(s.bdb.Close(), "chain/bolt: failed to close")
}

// Destroy the database file and all its contents
func (s *BoltStore) Destroy() error {
	return errors.Wrap(os.RemoveAll(s.dir), "chain/bolt: failed to destroy")
}

// boltTx is the concrete transaction implementation for a chain tx
type boltTx struct {
	btx *bolt.Tx
}

// WriteBlock writes a block to storage unconditionally
func (tx *boltTx) WriteBlock(b *Block) (err error) {
	d, err := encode(b)
	if err != nil {
		return err
	}

	err = tx.btx.Bucket(boltBucketBlocks).Put(blockKey(b.Index), d)
	if err != nil {
		return errors.Wrap(err, "failed to put block")
	}

	return
}

// ReadBlocks walks all blocks in index order and calls f
func (tx *boltTx) ReadBlocks(f func(b *Block) error) (err error) {
	return tx.btx.Bucket(boltBucketBlocks).ForEach(func(k, v []byte) error {
		b, err := decodeBlock(v)
		if err != nil {
			return err
		}

		return f(b)
	})
}

// WriteMarker will write the tamper marker
func (tx *boltTx) WriteMarker(m TamperMarker) (err error) {
	d, err := encode(&m)
	if err != nil {
		return err
	}

	err = tx.btx.Bucket(boltBucketMeta).Put(markerKey, d)
	if err != nil {
		return errors.Wrap(err, "failed to put marker")
	}

	return
}

// ReadMarker will read the tamper marker from storage
func (tx *boltTx) ReadMarker() (m TamperMarker, err error) {
	d := tx.btx.Bucket(boltBucketMeta).Get(markerKey)
	if d == nil {
		return m, nil
	}

	return decodeMarker(d)
}

func (tx *boltTx) Commit() (err error) { return tx.btx.Commit() }

func (tx *boltTx) Discard() {
	_ = tx.btx.Rollback() //returns ErrTxClosed after a commit
}
