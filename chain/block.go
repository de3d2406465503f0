package chain

import (
	"fmt"
	"time"
)

const (
	//GenesisPrevHash is the previous hash every genesis block points at
	GenesisPrevHash = "0"

	//TamperedData replaces the data of a block that is tampered with
	TamperedData = "TAMPERED DATA - Invalid Vote"

	//MaxNonce bounds the cosmetic nonce drawn for appended blocks
	MaxNonce = 100000
)

//ISOFormat is how block timestamps are rendered
const ISOFormat = "2006-01-02T15:04:05.000Z07:00"

//Block is one record in the chain. Its hash is computed once when the block is
//created and is never recomputed, not even when the data is tampered with.
type Block struct {

	// Position of the block in the chain, the genesis block is at 0 and every
	// next block has an index one higher then its predecessor.
	Index uint64

	// Moment the block was created, it never changes afterwards.
	Timestamp time.Time

	// Free-form description of the vote or event this block records. This is
	// the only field that can change after creation.
	Data string

	// Hash of the block right before this one, or GenesisPrevHash.
	PrevHash string

	// Display hash, set once at creation.
	Hash string

	// Shown for realism only, there is no proof-of-work.
	Nonce uint64
}

//ISOTime returns the block's timestamp in ISO-8601 with millisecond precision
func (b *Block) ISOTime() string {
	return b.Timestamp.UTC().Format(ISOFormat)
}

func (b *Block) String() string {
	return fmt.Sprintf("#%d %s prev=%s nonce=%d %q", b.Index, b.Hash, b.PrevHash, b.Nonce, b.Data)
}
