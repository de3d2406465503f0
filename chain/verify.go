package chain

import "fmt"

//NoBreak is the BrokenAt value of a structurally valid chain
const NoBreak = -1

//Validation is the result of checking the hash links of a chain
type Validation struct {
	Valid    bool
	BrokenAt int
}

// VerifyStructure walks the blocks in order and checks that every block's
// previous hash equals the stored hash of its predecessor. It stops at the
// first mismatch. Hashes are compared as stored, never recomputed.
func VerifyStructure(blocks []Block) (v Validation) {
	for i := 1; i < len(blocks); i++ {
		if blocks[i].PrevHash != blocks[i-1].Hash {
			return Validation{Valid: false, BrokenAt: i}
		}
	}

	return Validation{Valid: true, BrokenAt: NoBreak}
}

//TamperMarker remembers which block was tampered with last. It is kept next
//to the chain and is not part of the chain's own data.
type TamperMarker struct {
	IsSet bool
	Index int
}

//Mark records that block 'i' was tampered with
func (m *TamperMarker) Mark(i int) {
	m.IsSet = true
	m.Index = i
}

//Tampered returns the index of the last tampered block, if any
func (m TamperMarker) Tampered() (i int, ok bool) {
	return m.Index, m.IsSet
}

//Outcome of a composite chain verification
type Outcome int

const (
	//OutcomeValid means the chain is linked and nothing was tampered with
	OutcomeValid Outcome = iota

	//OutcomeCompromised means the chain is linked but a block's content was changed
	OutcomeCompromised

	//OutcomeInvalid means a hash link is broken
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeCompromised:
		return "compromised"
	case OutcomeInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

//Report is what the verify action shows to the user
type Report struct {
	Outcome Outcome

	//Index of the breaking or tampered block, NoBreak when valid
	Index int

	Title       string
	Description string
}

// Verify combines the structural check with the tamper marker into one of
// three outcomes. A broken link always wins over a tamper marker.
func Verify(blocks []Block, m TamperMarker) (r Report) {
	v := VerifyStructure(blocks)
	if !v.Valid {
		return Report{
			Outcome:     OutcomeInvalid,
			Index:       v.BrokenAt,
			Title:       "Chain is invalid!",
			Description: fmt.Sprintf("Block %d has an invalid previous hash", v.BrokenAt),
		}
	}

	if i, ok := m.Tampered(); ok {
		return Report{
			Outcome:     OutcomeCompromised,
			Index:       i,
			Title:       "Chain structure is valid but data integrity compromised",
			Description: fmt.Sprintf("Block %d contains tampered data", i),
		}
	}

	return Report{
		Outcome:     OutcomeValid,
		Index:       NoBreak,
		Title:       "Chain is valid!",
		Description: "All blocks are properly linked and secure",
	}
}
