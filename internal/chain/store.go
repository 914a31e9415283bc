package chain

import "context"

// Store persists blocks on behalf of a Ledger. Implementations must be safe for
// concurrent use; the Ledger serialises writes but not reads.
type Store interface {
	// Count returns the number of persisted blocks.
	Count(ctx context.Context) (int, error)

	// Insert persists a new block. It returns ErrDuplicateSeq if a block with the
	// same sequence number already exists.
	Insert(ctx context.Context, b Block) error

	// List returns every block ordered ascending by sequence number.
	List(ctx context.Context) ([]Block, error)

	// Last returns the block with the highest sequence number.
	Last(ctx context.Context) (Block, bool, error)

	// Get returns the block with the given sequence number.
	Get(ctx context.Context, seq int64) (Block, bool, error)

	// Update overwrites a stored block in place. It returns ErrNotFound if absent.
	Update(ctx context.Context, b Block) error
}
