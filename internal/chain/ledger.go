package chain

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Ledger sequences and links blocks on top of a Store.
//
// Writes (EnsureGenesis, Append, Corrupt) are serialised by a mutex held across
// the read-last/compute/insert sequence, so no two appends can claim the same
// sequence number. Reads go straight to the Store and may observe a chain that
// is mid-append.
type Ledger struct {
	store    Store
	logger   *zap.Logger
	now      func() time.Time
	onAppend func(Block)

	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger's logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source used to stamp new blocks.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithAppendHook registers fn to be called with every newly persisted block,
// including the genesis block.
func WithAppendHook(fn func(Block)) Option {
	return func(l *Ledger) { l.onAppend = fn }
}

// New creates a Ledger over store. It does not create the genesis block;
// call EnsureGenesis once during startup.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// EnsureGenesis persists block 1 with GenesisPayload if the store is empty.
// It reports whether a block was created; calling it again is a no-op.
func (l *Ledger) EnsureGenesis(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count blocks: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	genesis := newBlock(1, l.now(), GenesisPayload, GenesisPrevHash)
	if err := l.store.Insert(ctx, genesis); err != nil {
		return false, fmt.Errorf("insert genesis block: %w", err)
	}

	l.logger.Info("genesis block created", zap.String("hash", genesis.Hash))
	if l.onAppend != nil {
		l.onAppend(genesis)
	}
	return true, nil
}

// Append creates a block holding payload, linked to the current last block, and
// persists it. On an empty store it falls back to sequence 1 with the genesis
// previous hash.
func (l *Ledger) Append(ctx context.Context, payload string) (Block, error) {
	if err := checkPayload(payload); err != nil {
		return Block{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	seq, prevHash := int64(1), GenesisPrevHash
	last, ok, err := l.store.Last(ctx)
	if err != nil {
		return Block{}, fmt.Errorf("read chain tail: %w", err)
	}
	if ok {
		seq, prevHash = last.Seq+1, last.Hash
	}

	b := newBlock(seq, l.now(), payload, prevHash)
	if err := l.store.Insert(ctx, b); err != nil {
		return Block{}, fmt.Errorf("insert block: %w", err)
	}

	l.logger.Debug("block appended",
		zap.Int64("id", b.Seq),
		zap.String("hash", b.Hash),
	)
	if l.onAppend != nil {
		l.onAppend(b)
	}
	return b, nil
}

// All returns a fresh snapshot of every block, ascending by sequence number.
func (l *Ledger) All(ctx context.Context) ([]Block, error) {
	blocks, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return blocks, nil
}

// Get returns the block with sequence number seq. A missing block is reported
// through ok, not as an error.
func (l *Ledger) Get(ctx context.Context, seq int64) (b Block, ok bool, err error) {
	b, ok, err = l.store.Get(ctx, seq)
	if err != nil {
		return Block{}, false, fmt.Errorf("get block %d: %w", seq, err)
	}
	return b, ok, nil
}

// Len returns the number of blocks, including the genesis block.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	n, err := l.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

// Tip returns the hash of the last block, or "" for an empty chain.
func (l *Ledger) Tip(ctx context.Context) (string, error) {
	last, ok, err := l.store.Last(ctx)
	if err != nil {
		return "", fmt.Errorf("read chain tail: %w", err)
	}
	if !ok {
		return "", nil
	}
	return last.Hash, nil
}

// Corrupt replaces the payload of block seq WITHOUT recomputing its hash.
//
// This deliberately breaks the block's integrity and exists only to demonstrate
// that Verify detects tampering. It is not an edit operation.
func (l *Ledger) Corrupt(ctx context.Context, seq int64, payload string) (Block, bool, error) {
	if err := checkPayload(payload); err != nil {
		return Block{}, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok, err := l.store.Get(ctx, seq)
	if err != nil {
		return Block{}, false, fmt.Errorf("get block %d: %w", seq, err)
	}
	if !ok {
		return Block{}, false, nil
	}

	b.Payload = payload
	if err := l.store.Update(ctx, b); err != nil {
		return Block{}, false, fmt.Errorf("update block %d: %w", seq, err)
	}

	l.logger.Warn("block payload overwritten without rehash",
		zap.Int64("id", b.Seq),
	)
	return b, true, nil
}

func checkPayload(payload string) error {
	if n := utf8.RuneCountInString(payload); n > MaxPayloadLen {
		return fmt.Errorf("%w: %d characters, max %d", ErrPayloadTooLong, n, MaxPayloadLen)
	}
	return nil
}
