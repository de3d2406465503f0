package chain

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io/ioutil"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

var (
	blockPrefix = []byte{0x00}
	markerKey   = []byte{0x01}
)

//Store persists the blocks of a chain and its tamper marker
type Store interface {
	CreateTx(writable bool) (tx Tx, err error)
	Close() (err error)
}

//Tx is an ACID interaction with the store
type Tx interface {
	WriteBlock(b *Block) (err error)
	ReadBlocks(f func(b *Block) error) (err error)
	WriteMarker(m TamperMarker) (err error)
	ReadMarker() (m TamperMarker, err error)

	Commit() (err error)
	Discard()
}

//Load reads all blocks and the tamper marker in a single read transaction
func Load(s Store) (blocks []*Block, m TamperMarker, err error) {
	tx, err := s.CreateTx(false)
	if err != nil {
		return nil, m, errors.Wrap(err, "failed to create read tx")
	}

	defer tx.Discard()
	if err = tx.ReadBlocks(func(b *Block) error {
		blocks = append(blocks, b)
		return nil
	}); err != nil {
		return nil, m, errors.Wrap(err, "failed to read blocks")
	}

	m, err = tx.ReadMarker()
	if err != nil {
		return nil, m, errors.Wrap(err, "failed to read tamper marker")
	}

	return
}

// Update runs f in a writable transaction and commits when f returns no error
func Update(s Store, f func(tx Tx) error) (err error) {
	tx, err := s.CreateTx(true)
	if err != nil {
		return errors.Wrap(err, "failed to create write tx")
	}

	defer tx.Discard()
	if err = f(tx); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

//blockKey sorts blocks in index order
func blockKey(idx uint64) (k []byte) {
	k = make([]byte, len(blockPrefix)+8)
	copy(k, blockPrefix)
	binary.BigEndian.PutUint64(k[len(blockPrefix):], idx)
	return
}

func encode(v interface{}) (d []byte, err error) {
	buf := bytes.NewBuffer(nil)
	if err = gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode")
	}

	return buf.Bytes(), nil
}

func decodeBlock(d []byte) (b *Block, err error) {
	b = new(Block)
	if err = gob.NewDecoder(bytes.NewReader(d)).Decode(b); err != nil {
		return nil, errors.Wrap(err, "failed to decode block data")
	}

	return
}

func decodeMarker(d []byte) (m TamperMarker, err error) {
	if err = gob.NewDecoder(bytes.NewReader(d)).Decode(&m); err != nil {
		return m, errors.Wrap(err, "failed to decode tamper marker")
	}

	return
}

//BadgerStore is a store implementation that is backed by a badger database
type BadgerStore struct {
	db *badger.DB
}

//BadgerTx is an transaction on the badger store
type BadgerTx struct {
	btx *badger.Txn
}

//NewBadgerStore creates a badger powered store in 'dir'
func NewBadgerStore(dir string) (s *BadgerStore, err error) {
	s = &BadgerStore{}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	s.db, err = badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open badger db")
	}

	return
}

//TempBadgerStore will return a temporary store that will be fully cleaned up when
//the 'clean' func is called. It panics if any of the operations fails so this
//function is mostly used for testing purposes
func TempBadgerStore() (s *BadgerStore, clean func()) {
	dir, err := ioutil.TempDir("", "civiclink_")
	if err != nil {
		panic("failed to create tempdir: " + err.Error())
	}

	s, err = NewBadgerStore(dir)
	if err != nil {
		panic("failed to create store: " + err.Error())
	}

	return s, func() {
		err = os.RemoveAll(dir)
		if err != nil {
			panic("failed to remove dir: " + err.Error())
		}
	}
}

//CreateTx sets up the transaction
func (s *BadgerStore) CreateTx(writable bool) (tx Tx, err error) {
	return &BadgerTx{btx: s.db.NewTransaction(writable)}, nil
}

//Close the store, removing any open resources
func (s *BadgerStore) Close() (err error) {
	return s.db.Close()
}

//WriteBlock writes the block and replaces any block at the same index
func (tx *BadgerTx) WriteBlock(b *Block) (err error) {
	d, err := encode(b)
	if err != nil {
		return err
	}

	return errors.Wrap(tx.btx.Set(blockKey(b.Index), d), "failed to set block data")
}

//ReadBlocks calls f for each stored block in index order
func (tx *BadgerTx) ReadBlocks(f func(b *Block) error) (err error) {
	iter := tx.btx.NewIterator(badger.DefaultIteratorOptions)
	defer iter.Close()

	for iter.Seek(blockPrefix); iter.ValidForPrefix(blockPrefix); iter.Next() {
		d, err := iter.Item().Value()
		if err != nil {
			return errors.Wrap(err, "failed to read block value")
		}

		b, err := decodeBlock(d)
		if err != nil {
			return err
		}

		if err = f(b); err != nil {
			return err
		}
	}

	return nil
}

//WriteMarker replaces the stored tamper marker
func (tx *BadgerTx) WriteMarker(m TamperMarker) (err error) {
	d, err := encode(&m)
	if err != nil {
		return err
	}

	return errors.Wrap(tx.btx.Set(markerKey, d), "failed to set marker data")
}

//ReadMarker reads the tamper marker, the zero marker is returned if none was stored
func (tx *BadgerTx) ReadMarker() (m TamperMarker, err error) {
	it, err := tx.btx.Get(markerKey)
	if err == badger.ErrKeyNotFound {
		return m, nil
	} else if err != nil {
		return m, errors.Wrap(err, "failed to get marker data")
	}

	d, err := it.Value()
	if err != nil {
		return m, errors.Wrap(err, "failed to read marker data")
	}

	return decodeMarker(d)
}

//Discard any tx resources
func (tx *BadgerTx) Discard() { tx.btx.Discard() }

//Commit the transaction
func (tx *BadgerTx) Commit() (err error) { return tx.btx.Commit(nil) }
