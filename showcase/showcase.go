package showcase

import (
	"log"
	"os"

	"github.com/advanderveer/civiclink/chain"
	"github.com/advanderveer/civiclink/tally"
	"github.com/pkg/errors"
)

// Showcase owns a single chain together with its tamper marker and keeps both
// persisted. State is read once when the showcase is created and written on
// every mutating action. It is meant to be driven by one caller at a time.
type Showcase struct {
	logs   *log.Logger
	store  chain.Store
	chain  *chain.Chain
	marker chain.TamperMarker
	cfg    *Conf
}

//New opens the configured store and loads the chain from it, a fresh chain is
//created and persisted if the store is empty
func New(cfg *Conf) (s *Showcase, err error) {
	st, err := OpenStore(cfg.Backend, cfg.Dir)
	if err != nil {
		return nil, err
	}

	s, err = NewWithStore(cfg, st)
	if err != nil {
		st.Close()
		return nil, err
	}

	return s, nil
}

//NewWithStore creates a showcase that persists to an already opened store
func NewWithStore(cfg *Conf, st chain.Store) (s *Showcase, err error) {
	s = &Showcase{
		cfg:   cfg,
		logs:  log.New(cfg.LogWriter, "", 0),
		store: st,
	}

	blocks, marker, err := chain.Load(st)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chain")
	}

	if len(blocks) > 0 {
		s.chain, err = chain.Restore(cfg.Clock, cfg.Rand, blocks)
		if err != nil {
			return nil, errors.Wrap(err, "failed to restore chain")
		}

		s.marker = marker
		s.logs.Printf("[INFO][showcase] loaded chain of %d blocks, tip %s", s.chain.Len(), s.chain.Tip().Hash)
		return s, nil
	}

	if cfg.SeedDemo {
		s.chain = chain.NewDemoChain(cfg.Clock, cfg.Rand)
	} else {
		s.chain = chain.NewChain(cfg.Clock, cfg.Rand)
	}

	if err = chain.Update(st, func(tx chain.Tx) error {
		for _, b := range s.chain.Blocks() {
			b := b
			if err := tx.WriteBlock(&b); err != nil {
				return err
			}
		}

		return tx.WriteMarker(s.marker)
	}); err != nil {
		return nil, errors.Wrap(err, "failed to persist new chain")
	}

	s.logs.Printf("[INFO][showcase] initialized new chain of %d blocks", s.chain.Len())
	return s, nil
}

// OpenStore opens the storage backend by name, 'dir' is created if it doesn't
// exist yet
func OpenStore(backend, dir string) (st chain.Store, err error) {
	switch backend {
	case BackendMem:
		return chain.NewMemStore(), nil
	case BackendBadger, BackendBolt:
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "'%s'", backend)
	}

	if err = os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	if backend == BackendBolt {
		st, err = chain.NewBoltStore(dir)
	} else {
		st, err = chain.NewBadgerStore(dir)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s store", backend)
	}

	return st, nil
}

// Add appends a block holding 'data' and persists it. The chain only grows
// once the block is committed to the store.
func (s *Showcase) Add(data string) (b chain.Block, err error) {
	b = s.chain.Next(data)
	if err = chain.Update(s.store, func(tx chain.Tx) error {
		return tx.WriteBlock(&b)
	}); err != nil {
		s.logs.Printf("[ERRO][showcase] failed to persist block %d: %v", b.Index, err)
		return b, errors.Wrap(err, "failed to persist block")
	}

	if err = s.chain.Push(b); err != nil {
		return b, errors.Wrap(err, "failed to push persisted block")
	}

	s.logs.Printf("[INFO][showcase] appended block %d (%s) on %s", b.Index, b.Hash, b.PrevHash)
	return b, nil
}

// Vote appends a block holding a vote for a random candidate
func (s *Showcase) Vote() (b chain.Block, err error) {
	return s.Add(chain.RandomVote(s.cfg.Rand))
}

// Tamper overwrites the data of block 'i' and marks it as tampered. An index
// out of range changes nothing and returns chain.ErrIndexOutOfRange. Chain and
// marker only change once the tampered block is committed to the store.
func (s *Showcase) Tamper(i int) (b chain.Block, err error) {
	b, err = s.chain.Block(i)
	if err != nil {
		s.logs.Printf("[INFO][showcase] refused to tamper with block %d: %v", i, err)
		return b, err
	}

	b.Data = chain.TamperedData
	marker := s.marker
	marker.Mark(i)
	if err = chain.Update(s.store, func(tx chain.Tx) error {
		if err := tx.WriteBlock(&b); err != nil {
			return err
		}

		return tx.WriteMarker(marker)
	}); err != nil {
		s.logs.Printf("[ERRO][showcase] failed to persist tampered block %d: %v", i, err)
		return b, errors.Wrap(err, "failed to persist tampered block")
	}

	if b, err = s.chain.Tamper(i); err != nil {
		return b, err
	}

	s.marker = marker
	s.logs.Printf("[INFO][showcase] tampered with block %d (%s)", i, b.Hash)
	return b, nil
}

// Verify reports whether the chain is valid, compromised or invalid
func (s *Showcase) Verify() (r chain.Report) {
	r = chain.Verify(s.chain.Blocks(), s.marker)
	s.logs.Printf("[INFO][showcase] verified %d blocks: %s (%s)", s.chain.Len(), r.Outcome, r.Description)
	return
}

// Blocks returns a copy of all blocks in the chain
func (s *Showcase) Blocks() []chain.Block { return s.chain.Blocks() }

// Marker returns the tamper marker
func (s *Showcase) Marker() chain.TamperMarker { return s.marker }

// Find looks up a recorded block by its hash
func (s *Showcase) Find(hash string) (b chain.Block, err error) {
	return s.chain.Find(hash)
}

// Tally counts the votes that are currently recorded
func (s *Showcase) Tally() (r *tally.Result, err error) {
	return tally.Tally(tally.DefaultContext(), s.chain.Blocks())
}

// Close the underlying store
func (s *Showcase) Close() (err error) {
	return errors.Wrap(s.store.Close(), "failed to close store")
}
