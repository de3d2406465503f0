package chain

import (
	"fmt"
	"math/rand"
	"time"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/pkg/errors"
)

const (
	genesisData  = "Genesis Block - Blockchain Initialized"
	genesisHash  = "000000abc123def456"
	genesisNonce = 12345

	demoData  = "Vote: Municipal Election - Candidate A"
	demoHash  = "000001def789abc012"
	demoNonce = 67890
)

//Chain holds an ordered sequence of blocks that starts with a genesis block.
//Blocks are only ever appended, a block's data may be tampered with but blocks
//are never removed or reordered. The chain is not safe for concurrent use.
type Chain struct {
	clock  Clock
	rnd    *rand.Rand
	blocks []*Block

	//hash to position, for lookups by hash
	index *iradix.Tree
}

//NewChain creates a chain that holds only the genesis block
func NewChain(clk Clock, rnd *rand.Rand) (c *Chain) {
	c = &Chain{clock: clk, rnd: rnd, index: iradix.New()}

	now := clk.Now()
	c.push(&Block{
		Index:     0,
		Timestamp: now.Add(-10 * time.Minute),
		Data:      genesisData,
		PrevHash:  GenesisPrevHash,
		Hash:      genesisHash,
		Nonce:     genesisNonce,
	})

	return c
}

//NewDemoChain creates a chain with the genesis block and one vote block that
//links to it
func NewDemoChain(clk Clock, rnd *rand.Rand) (c *Chain) {
	c = NewChain(clk, rnd)
	gen := c.blocks[0]

	c.push(&Block{
		Index:     1,
		Timestamp: gen.Timestamp.Add(5 * time.Minute),
		Data:      demoData,
		PrevHash:  gen.Hash,
		Hash:      demoHash,
		Nonce:     demoNonce,
	})

	return c
}

//Restore rebuilds a chain from previously stored blocks. The records must form
//a well-formed sequence: a genesis block at index 0 followed by blocks with
//increasing indexes. Broken hash links are accepted as-is, finding them is what
//verification is for.
func Restore(clk Clock, rnd *rand.Rand, blocks []*Block) (c *Chain, err error) {
	if len(blocks) < 1 {
		return nil, ErrEmptyChain
	}

	if blocks[0].Index != 0 || blocks[0].PrevHash != GenesisPrevHash {
		return nil, ErrInvalidGenesis
	}

	c = &Chain{clock: clk, rnd: rnd, index: iradix.New()}
	for i, b := range blocks {
		if b == nil {
			return nil, errors.Wrapf(ErrBlockNotExist, "block at position %d", i)
		}

		if b.Index != uint64(i) {
			return nil, errors.Wrapf(ErrIndexNotContiguous, "block at position %d has index %d", i, b.Index)
		}

		bb := *b
		c.push(&bb)
	}

	return c, nil
}

func (c *Chain) push(b *Block) {
	c.index, _, _ = c.index.Insert([]byte(b.Hash), len(c.blocks))
	c.blocks = append(c.blocks, b)
}

// Append creates a block holding 'data' on top of the current tip and returns
// a copy of it. Empty data is valid content.
func (c *Chain) Append(data string) (b Block) {
	b = c.Next(data)
	if err := c.Push(b); err != nil {
		panic("failed to push block minted on our own tip: " + err.Error())
	}

	return b
}

// Next mints the block that would hold 'data' on top of the current tip
// without adding it to the chain.
func (c *Chain) Next(data string) (b Block) {
	last := c.blocks[len(c.blocks)-1]
	now := c.clock.Now()

	//the new index makes the seed unique per call, even if the clock stands still
	seed := fmt.Sprintf("%s%d:%d", last.Hash, now.UnixNano()/int64(time.Millisecond), last.Index+1)

	return Block{
		Index:     last.Index + 1,
		Timestamp: now,
		Data:      data,
		PrevHash:  last.Hash,
		Hash:      Hash(seed),
		Nonce:     uint64(c.rnd.Int63n(MaxNonce)),
	}
}

// Push adds a block that was minted with Next. It must directly follow the
// current tip.
func (c *Chain) Push(b Block) (err error) {
	last := c.blocks[len(c.blocks)-1]
	if b.Index != last.Index+1 {
		return errors.Wrapf(ErrIndexNotContiguous, "block has index %d, tip is at %d", b.Index, last.Index)
	}

	c.push(&b)
	return nil
}

// Tamper overwrites the data of the block at index 'i' with TamperedData. The
// block's hash and previous hash are left alone so the chain stays linked.
func (c *Chain) Tamper(i int) (b Block, err error) {
	if i < 0 || i >= len(c.blocks) {
		return b, ErrIndexOutOfRange
	}

	c.blocks[i].Data = TamperedData
	return *c.blocks[i], nil
}

//Len returns the number of blocks, it is always at least 1
func (c *Chain) Len() int { return len(c.blocks) }

//Genesis returns the genesis block
func (c *Chain) Genesis() Block { return *c.blocks[0] }

//Tip returns the last block in the chain
func (c *Chain) Tip() Block { return *c.blocks[len(c.blocks)-1] }

//Block returns the block at index 'i'
func (c *Chain) Block(i int) (b Block, err error) {
	if i < 0 || i >= len(c.blocks) {
		return b, ErrIndexOutOfRange
	}

	return *c.blocks[i], nil
}

//Blocks returns a copy of all blocks in index order
func (c *Chain) Blocks() (bs []Block) {
	bs = make([]Block, 0, len(c.blocks))
	for _, b := range c.blocks {
		bs = append(bs, *b)
	}

	return
}

// Find the block with the provided hash. If multiple blocks share the hash
// the one appended last is returned.
func (c *Chain) Find(hash string) (b Block, err error) {
	v, ok := c.index.Get([]byte(hash))
	if !ok {
		return b, ErrBlockNotExist
	}

	return *c.blocks[v.(int)], nil
}
