package showcase

import (
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/advanderveer/civiclink/chain"
	"github.com/pkg/errors"
)

//Storage backends the showcase can persist its chain in
const (
	BackendBadger = "badger"
	BackendBolt   = "bolt"
	BackendMem    = "mem"
)

//Conf configures the showcase
type Conf struct {
	//Logs will be written to the writer
	LogWriter io.Writer

	//Directory the chain is persisted in, ignored by the mem backend
	Dir string

	//Storage backend, one of the Backend constants
	Backend string

	//Seed a new chain with a second, linked, demo vote block
	SeedDemo bool

	//Time source for new blocks
	Clock chain.Clock

	//Randomness for nonces and random votes
	Rand *rand.Rand
}

//DefaultConf returns sensible defaults
func DefaultConf() *Conf {
	return &Conf{
		LogWriter: os.Stderr,
		Dir:       "./civiclink-data",
		Backend:   BackendBadger,
		SeedDemo:  true,
		Clock:     chain.NewWallClock(),
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FromEnv overwrites configuration with any CIVIC_* environment variables that
// are set
func (c *Conf) FromEnv() (err error) {
	if v := os.Getenv("CIVIC_DATA_DIR"); v != "" {
		c.Dir = v
	}

	if v := os.Getenv("CIVIC_STORE"); v != "" {
		c.Backend = v
	}

	if v := os.Getenv("CIVIC_SEED_DEMO"); v != "" {
		c.SeedDemo, err = strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid CIVIC_SEED_DEMO=%q", v)
		}
	}

	if v := os.Getenv("CIVIC_RAND_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid CIVIC_RAND_SEED=%q", v)
		}

		c.Rand = rand.New(rand.NewSource(seed))
	}

	return nil
}
