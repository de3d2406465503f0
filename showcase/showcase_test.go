package showcase_test

import (
	"bytes"
	"io/ioutil"
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/advanderveer/civiclink/chain"
	"github.com/advanderveer/civiclink/showcase"
	"github.com/advanderveer/go-test"
	"github.com/pkg/errors"
)

func testConf(logs *bytes.Buffer) *showcase.Conf {
	cfg := showcase.DefaultConf()
	cfg.LogWriter = logs
	cfg.Backend = showcase.BackendMem
	cfg.Clock = chain.NewStepClock(time.Date(2024, 5, 29, 8, 0, 0, 0, time.UTC), time.Second)
	cfg.Rand = rand.New(rand.NewSource(1))
	return cfg
}

func TestShowcaseScenarios(t *testing.T) {
	t.Run("append then verify is valid", func(t *testing.T) {
		cfg := testConf(bytes.NewBuffer(nil))
		cfg.SeedDemo = false

		s, err := showcase.New(cfg)
		test.Ok(t, err)
		defer s.Close()

		b, err := s.Add("Vote: Municipal Election - Candidate A")
		test.Ok(t, err)
		test.Equals(t, uint64(1), b.Index)

		r := s.Verify()
		test.Equals(t, chain.OutcomeValid, r.Outcome)
	})

	t.Run("tamper then verify is compromised", func(t *testing.T) {
		cfg := testConf(bytes.NewBuffer(nil))
		cfg.SeedDemo = false

		s, err := showcase.New(cfg)
		test.Ok(t, err)
		defer s.Close()

		_, err = s.Add("Vote: Municipal Election - Candidate A")
		test.Ok(t, err)

		b, err := s.Tamper(1)
		test.Ok(t, err)
		test.Equals(t, chain.TamperedData, b.Data)

		r := s.Verify()
		test.Equals(t, chain.OutcomeCompromised, r.Outcome)
		test.Equals(t, 1, r.Index)
		test.Equals(t, "Block 1 contains tampered data", r.Description)
	})

	t.Run("genesis only is valid", func(t *testing.T) {
		cfg := testConf(bytes.NewBuffer(nil))
		cfg.SeedDemo = false

		s, err := showcase.New(cfg)
		test.Ok(t, err)
		defer s.Close()

		test.Equals(t, 1, len(s.Blocks()))
		test.Equals(t, chain.OutcomeValid, s.Verify().Outcome)
	})
}

func TestShowcaseOperations(t *testing.T) {
	logs := bytes.NewBuffer(nil)
	s, err := showcase.New(testConf(logs))
	test.Ok(t, err)
	defer s.Close()

	test.Equals(t, 2, len(s.Blocks()))
	test.Assert(t, strings.Contains(logs.String(), "initialized new chain of 2 blocks"), "should log initialization")

	b, err := s.Vote()
	test.Ok(t, err)
	test.Equals(t, uint64(2), b.Index)
	test.Assert(t, strings.HasPrefix(b.Data, "Vote: "), "should add a vote")
	test.Assert(t, strings.Contains(logs.String(), "appended block 2"), "should log append")

	t.Run("find by hash", func(t *testing.T) {
		f, err := s.Find(b.Hash)
		test.Ok(t, err)
		test.Equals(t, b, f)

		_, err = s.Find("nope")
		test.Equals(t, chain.ErrBlockNotExist, err)
	})

	t.Run("tally counts demo and random vote", func(t *testing.T) {
		r, err := s.Tally()
		test.Ok(t, err)
		test.Equals(t, 1, r.Skipped)

		var total uint64
		for _, race := range r.Races {
			total += race.Total
		}

		test.Equals(t, uint64(2), total)
	})

	t.Run("out of range tamper changes nothing", func(t *testing.T) {
		before := s.Blocks()
		_, err := s.Tamper(99)
		test.Equals(t, chain.ErrIndexOutOfRange, err)
		test.Equals(t, before, s.Blocks())
		test.Equals(t, chain.TamperMarker{}, s.Marker())
		test.Equals(t, chain.OutcomeValid, s.Verify().Outcome)
	})

	t.Run("tampering with genesis is allowed", func(t *testing.T) {
		_, err := s.Tamper(0)
		test.Ok(t, err)

		r := s.Verify()
		test.Equals(t, chain.OutcomeCompromised, r.Outcome)
		test.Equals(t, 0, r.Index)
	})
}

func TestShowcasePersistence(t *testing.T) {
	for _, backend := range []string{showcase.BackendBadger, showcase.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			dir, err := ioutil.TempDir("", "civiclink_showcase_")
			test.Ok(t, err)
			defer os.RemoveAll(dir)

			cfg := testConf(bytes.NewBuffer(nil))
			cfg.Backend = backend
			cfg.Dir = dir

			s1, err := showcase.New(cfg)
			test.Ok(t, err)

			_, err = s1.Add("Vote: National Election - Candidate C")
			test.Ok(t, err)
			_, err = s1.Tamper(2)
			test.Ok(t, err)

			blocks := s1.Blocks()
			test.Ok(t, s1.Close())

			logs := bytes.NewBuffer(nil)
			cfg.LogWriter = logs
			s2, err := showcase.New(cfg)
			test.Ok(t, err)
			defer s2.Close()

			test.Assert(t, strings.Contains(logs.String(), "loaded chain of 3 blocks"), "should log loading")
			test.Equals(t, len(blocks), len(s2.Blocks()))
			for i, b := range s2.Blocks() {
				test.Equals(t, blocks[i].Hash, b.Hash)
				test.Equals(t, blocks[i].Data, b.Data)
			}

			r := s2.Verify()
			test.Equals(t, chain.OutcomeCompromised, r.Outcome)
			test.Equals(t, 2, r.Index)

			b, err := s2.Add("after reload")
			test.Ok(t, err)
			test.Equals(t, uint64(3), b.Index)
			test.Equals(t, blocks[2].Hash, b.PrevHash)
		})
	}
}

func TestShowcaseUnknownBackend(t *testing.T) {
	cfg := testConf(bytes.NewBuffer(nil))
	cfg.Backend = "floppy"

	_, err := showcase.New(cfg)
	test.Equals(t, showcase.ErrUnknownBackend, errors.Cause(err))
}

func TestConfFromEnv(t *testing.T) {
	defer os.Unsetenv("CIVIC_DATA_DIR")
	defer os.Unsetenv("CIVIC_STORE")
	defer os.Unsetenv("CIVIC_SEED_DEMO")
	defer os.Unsetenv("CIVIC_RAND_SEED")

	os.Setenv("CIVIC_DATA_DIR", "/tmp/votes")
	os.Setenv("CIVIC_STORE", "bolt")
	os.Setenv("CIVIC_SEED_DEMO", "false")
	os.Setenv("CIVIC_RAND_SEED", "42")

	cfg := showcase.DefaultConf()
	test.Ok(t, cfg.FromEnv())
	test.Equals(t, "/tmp/votes", cfg.Dir)
	test.Equals(t, showcase.BackendBolt, cfg.Backend)
	test.Equals(t, false, cfg.SeedDemo)
	test.Equals(t, rand.New(rand.NewSource(42)).Int63(), cfg.Rand.Int63())

	t.Run("invalid values", func(t *testing.T) {
		os.Setenv("CIVIC_SEED_DEMO", "maybe")
		test.Assert(t, showcase.DefaultConf().FromEnv() != nil, "should fail on invalid bool")

		os.Setenv("CIVIC_SEED_DEMO", "1")
		os.Setenv("CIVIC_RAND_SEED", "x")
		test.Assert(t, showcase.DefaultConf().FromEnv() != nil, "should fail on invalid seed")
	})
}

//flakyStore fails every commit while 'fail' is set
type flakyStore struct {
	*chain.MemStore
	fail bool
}

func (s *flakyStore) CreateTx(writable bool) (chain.Tx, error) {
	tx, err := s.MemStore.CreateTx(writable)
	if err != nil {
		return nil, err
	}

	return &flakyTx{Tx: tx, s: s}, nil
}

type flakyTx struct {
	chain.Tx
	s *flakyStore
}

func (tx *flakyTx) Commit() error {
	if tx.s.fail {
		return errors.New("disk full")
	}

	return tx.Tx.Commit()
}

func TestShowcaseFailedCommitLeavesStateAlone(t *testing.T) {
	cfg := testConf(bytes.NewBuffer(nil))
	st := &flakyStore{MemStore: chain.NewMemStore()}

	s1, err := showcase.NewWithStore(cfg, st)
	test.Ok(t, err)
	before := s1.Blocks()

	st.fail = true
	_, err = s1.Add("Vote: Provincial Election - Candidate D")
	test.Assert(t, err != nil, "add should fail when the commit fails")
	test.Equals(t, before, s1.Blocks())

	_, err = s1.Tamper(0)
	test.Assert(t, err != nil, "tamper should fail when the commit fails")
	test.Equals(t, before, s1.Blocks())
	test.Equals(t, chain.TamperMarker{}, s1.Marker())
	test.Equals(t, chain.OutcomeValid, s1.Verify().Outcome)

	st.fail = false
	b, err := s1.Add("Vote: Provincial Election - Candidate D")
	test.Ok(t, err)
	test.Equals(t, uint64(len(before)), b.Index)

	t.Run("store still reloads", func(t *testing.T) {
		s2, err := showcase.NewWithStore(cfg, st)
		test.Ok(t, err)
		test.Equals(t, len(s1.Blocks()), len(s2.Blocks()))
		test.Equals(t, b.Hash, s2.Blocks()[b.Index].Hash)
		test.Equals(t, chain.OutcomeValid, s2.Verify().Outcome)
	})
}
