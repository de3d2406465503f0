package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/advanderveer/civiclink/chain"
	"github.com/advanderveer/civiclink/showcase"
	"github.com/pkg/errors"
)

func main() {
	cfg := showcase.DefaultConf()
	if err := cfg.FromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "civicchain: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.Dir, "data", cfg.Dir, "data directory")
	flag.StringVar(&cfg.Backend, "store", cfg.Backend, "storage backend: badger, bolt or mem")
	flag.BoolVar(&cfg.SeedDemo, "demo", cfg.SeedDemo, "seed a new chain with a demo vote block")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Parse()

	if !*verbose {
		cfg.LogWriter = ioutil.Discard
	}

	if len(flag.Args()) == 0 {
		usage()
		os.Exit(1)
	}

	code, err := run(cfg, os.Stdout, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "civicchain: %v\n", err)
	}

	os.Exit(code)
}

// run executes a single command and returns the process exit code
func run(cfg *showcase.Conf, w io.Writer, args []string) (code int, err error) {
	s, err := showcase.New(cfg)
	if err != nil {
		return 1, err
	}

	defer s.Close()

	switch args[0] {
	case "add":
		b, err := s.Add(strings.Join(args[1:], " "))
		if err != nil {
			return 1, err
		}

		fmt.Fprintf(w, "added block %d %s\n", b.Index, b.Hash)
	case "vote":
		b, err := s.Vote()
		if err != nil {
			return 1, err
		}

		fmt.Fprintf(w, "added block %d %s: %s\n", b.Index, b.Hash, b.Data)
	case "tamper":
		if len(args) < 2 {
			return 1, errors.New("tamper requires a block index")
		}

		i, err := strconv.Atoi(args[1])
		if err != nil {
			return 1, errors.Wrapf(err, "invalid block index '%s'", args[1])
		}

		b, err := s.Tamper(i)
		if err != nil {
			return 1, err
		}

		fmt.Fprintf(w, "tampered with block %d %s\n", b.Index, b.Hash)
	case "verify":
		r := s.Verify()
		fmt.Fprintf(w, "%s\n%s\n", r.Title, r.Description)
		switch r.Outcome {
		case chain.OutcomeInvalid:
			return 2, nil
		case chain.OutcomeCompromised:
			return 3, nil
		}
	case "list":
		list(w, s.Blocks(), s.Marker())
	case "find":
		if len(args) < 2 {
			return 1, errors.New("find requires a hash")
		}

		b, err := s.Find(args[1])
		if err != nil {
			return 1, errors.Wrapf(err, "no block with hash '%s'", args[1])
		}

		list(w, []chain.Block{b}, s.Marker())
	case "tally":
		r, err := s.Tally()
		if err != nil {
			return 1, err
		}

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, race := range r.Races {
			fmt.Fprintf(tw, "%s Election\t%d votes\t\n", race.Election, race.Total)
			for _, c := range race.Counts {
				fmt.Fprintf(tw, "  Candidate %s\t%d\t%s%%\n", c.Candidate, c.Votes, c.Share)
			}
		}

		tw.Flush()
	default:
		usage()
		return 1, errors.Errorf("unknown command '%s'", args[0])
	}

	return 0, nil
}

func list(w io.Writer, blocks []chain.Block, m chain.TamperMarker) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTIMESTAMP\tHASH\tPREV\tNONCE\tDATA")
	ti, tampered := m.Tampered()
	for _, b := range blocks {
		data := b.Data
		if tampered && int(b.Index) == ti {
			data += " [TAMPERED]"
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", b.Index, b.ISOTime(), b.Hash, b.PrevHash, b.Nonce, data)
	}

	tw.Flush()
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: civicchain [-data ./civiclink-data] [-store badger|bolt|mem] [-demo] [-v] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  add <data...>   append a block with the given data")
	fmt.Fprintln(os.Stderr, "  vote            append a block with a random vote")
	fmt.Fprintln(os.Stderr, "  tamper <index>  overwrite a block's data")
	fmt.Fprintln(os.Stderr, "  verify          check the chain, exits 2 when invalid and 3 when compromised")
	fmt.Fprintln(os.Stderr, "  list            print all blocks")
	fmt.Fprintln(os.Stderr, "  find <hash>     print the block with the given hash")
	fmt.Fprintln(os.Stderr, "  tally           count the recorded votes")
}
