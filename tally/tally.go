// Package tally counts the votes recorded in a chain and expresses each
// candidate's share of its election as an exact decimal percentage.
package tally

import (
	"sort"
	"strings"

	"github.com/advanderveer/civiclink/chain"
	"github.com/cockroachdb/apd"
	"github.com/pkg/errors"
)

const (
	votePrefix     = "Vote: "
	electionSuffix = " Election"
	candidateSep   = " - Candidate "
)

//DefaultContext returns a decimal context with more then enough precision
func DefaultContext() *apd.Context {
	return apd.BaseContext.WithPrecision(50)
}

//Count is the number of votes a candidate received in one election
type Count struct {
	Candidate string
	Votes     uint64

	//Percentage of the election's votes with one decimal, e.g. "33.3"
	Share string
}

//Race holds the counts of one election
type Race struct {
	Election string
	Total    uint64
	Counts   []*Count
}

//Result of tallying a sequence of blocks
type Result struct {
	Races []*Race

	//Blocks that didn't hold a vote, including tampered ones
	Skipped int
}

// ParseVote reads the election and candidate from block data of the form
// "Vote: <Election> Election - Candidate <Candidate>"
func ParseVote(data string) (election, candidate string, ok bool) {
	if !strings.HasPrefix(data, votePrefix) {
		return "", "", false
	}

	parts := strings.SplitN(data[len(votePrefix):], candidateSep, 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[0], electionSuffix) {
		return "", "", false
	}

	election = strings.TrimSpace(strings.TrimSuffix(parts[0], electionSuffix))
	candidate = strings.TrimSpace(parts[1])
	if election == "" || candidate == "" {
		return "", "", false
	}

	return election, candidate, true
}

// Tally counts the votes in the blocks. Races are ordered by election name,
// counts by votes (most first) and then by candidate name.
func Tally(c *apd.Context, blocks []chain.Block) (r *Result, err error) {
	r = &Result{}
	races := map[string]map[string]uint64{}
	for _, b := range blocks {
		el, cand, ok := ParseVote(b.Data)
		if !ok {
			r.Skipped++
			continue
		}

		if races[el] == nil {
			races[el] = map[string]uint64{}
		}

		races[el][cand]++
	}

	for el, cands := range races {
		race := &Race{Election: el}
		for cand, n := range cands {
			race.Total += n
			race.Counts = append(race.Counts, &Count{Candidate: cand, Votes: n})
		}

		for _, cnt := range race.Counts {
			cnt.Share, err = Share(c, cnt.Votes, race.Total)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to compute share of '%s' in '%s'", cnt.Candidate, el)
			}
		}

		sort.Slice(race.Counts, func(i, j int) bool {
			if race.Counts[i].Votes != race.Counts[j].Votes {
				return race.Counts[i].Votes > race.Counts[j].Votes
			}

			return race.Counts[i].Candidate < race.Counts[j].Candidate
		})

		r.Races = append(r.Races, race)
	}

	sort.Slice(r.Races, func(i, j int) bool { return r.Races[i].Election < r.Races[j].Election })
	return
}

// Share returns n as a percentage of total, rounded half up to one decimal
func Share(c *apd.Context, n, total uint64) (s string, err error) {
	if total == 0 {
		return "0.0", nil
	}

	d := new(apd.Decimal)
	if _, err = c.Quo(d, apd.New(int64(n)*100, 0), apd.New(int64(total), 0)); err != nil {
		return "", errors.Wrap(err, "failed to divide")
	}

	if _, err = c.Quantize(d, d, -1); err != nil {
		return "", errors.Wrap(err, "failed to quantize")
	}

	return d.Text('f'), nil
}
