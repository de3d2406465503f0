package chain

import "errors"

var (
	ErrIndexOutOfRange    = errors.New("block index out of range")
	ErrBlockNotExist      = errors.New("block doesn't exist")
	ErrEmptyChain         = errors.New("chain has no blocks")
	ErrInvalidGenesis     = errors.New("first block is not a valid genesis block")
	ErrIndexNotContiguous = errors.New("block index doesn't follow its predecessor")
	ErrReadOnlyTx         = errors.New("transaction is read-only")
)
