package chain

import (
	"fmt"
	"math/rand"
)

var (
	//Elections that random votes are cast in
	Elections = []string{"Municipal", "Provincial", "National"}

	//Candidates that random votes are cast for
	Candidates = []string{"A", "B", "C", "D", "E"}
)

//RandomVote describes a vote for a random candidate in a random election
func RandomVote(rnd *rand.Rand) string {
	return fmt.Sprintf("Vote: %s Election - Candidate %s",
		Elections[rnd.Intn(len(Elections))],
		Candidates[rnd.Intn(len(Candidates))])
}
