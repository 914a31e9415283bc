package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

// blockKeyPrefix namespaces block records. Sequence numbers are zero-padded so
// that LevelDB's byte ordering matches ascending sequence order.
const blockKeyPrefix = "block_"

func blockKey(seq int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", blockKeyPrefix, seq))
}

// LevelDBStore persists blocks as JSON values in an embedded LevelDB database.
// It implements the Store interface.
type LevelDBStore struct {
	db     *leveldb.DB
	logger *zap.Logger

	// guards the has-then-put sequence in Insert and Update
	mu sync.Mutex
}

// OpenLevelDBStore opens (or creates) a LevelDB database at path.
func OpenLevelDBStore(path string, logger *zap.Logger) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	logger.Info("leveldb store opened", zap.String("path", path))
	return &LevelDBStore{db: db, logger: logger}, nil
}

// Close releases the underlying database files.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// Count implements Store.
func (s *LevelDBStore) Count(_ context.Context) (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockKeyPrefix)), nil)
	defer iter.Release()

	n := 0
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

// Insert implements Store.
func (s *LevelDBStore) Insert(_ context.Context, b Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := blockKey(b.Seq)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("insert block %d: %w", b.Seq, err)
	}
	if exists {
		return fmt.Errorf("insert block %d: %w", b.Seq, ErrDuplicateSeq)
	}
	if err := s.put(key, b); err != nil {
		return fmt.Errorf("insert block %d: %w", b.Seq, err)
	}

	s.logger.Debug("block inserted",
		zap.Int64("id", b.Seq),
		zap.String("hash", b.Hash),
	)
	return nil
}

// List implements Store.
func (s *LevelDBStore) List(_ context.Context) ([]Block, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockKeyPrefix)), nil)
	defer iter.Release()

	var out []Block
	for iter.Next() {
		var b Block
		if err := json.Unmarshal(iter.Value(), &b); err != nil {
			return nil, fmt.Errorf("decode block %q: %w", iter.Key(), err)
		}
		out = append(out, b)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return out, nil
}

// Last implements Store.
func (s *LevelDBStore) Last(_ context.Context) (Block, bool, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockKeyPrefix)), nil)
	defer iter.Release()

	if !iter.Last() {
		return Block{}, false, iter.Error()
	}
	var b Block
	if err := json.Unmarshal(iter.Value(), &b); err != nil {
		return Block{}, false, fmt.Errorf("decode block %q: %w", iter.Key(), err)
	}
	return b, true, nil
}

// Get implements Store.
func (s *LevelDBStore) Get(_ context.Context, seq int64) (Block, bool, error) {
	data, err := s.db.Get(blockKey(seq), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, fmt.Errorf("get block %d: %w", seq, err)
	}
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return Block{}, false, fmt.Errorf("decode block %d: %w", seq, err)
	}
	return b, true, nil
}

// Update implements Store.
func (s *LevelDBStore) Update(_ context.Context, b Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := blockKey(b.Seq)
	exists, err := s.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("update block %d: %w", b.Seq, err)
	}
	if !exists {
		return ErrNotFound
	}
	if err := s.put(key, b); err != nil {
		return fmt.Errorf("update block %d: %w", b.Seq, err)
	}
	return nil
}

func (s *LevelDBStore) put(key []byte, b Block) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal block: %w", err)
	}
	return s.db.Put(key, data, nil)
}
