package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgUniqueViolation is the SQLSTATE raised when a primary key is reused.
const pgUniqueViolation = "23505"

const blockColumns = "id, timestamp, data, previous_hash, current_hash"

// PostgresStore persists blocks to the PostgreSQL "blocks" table.
// It implements the Store interface.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blocks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count blocks: %w", err)
	}
	return n, nil
}

// Insert implements Store. A primary key conflict is reported as ErrDuplicateSeq.
func (s *PostgresStore) Insert(ctx context.Context, b Block) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO blocks (`+blockColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		b.Seq, b.Timestamp, b.Payload, b.PrevHash, b.Hash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("insert block %d: %w", b.Seq, ErrDuplicateSeq)
		}
		return fmt.Errorf("insert block %d: %w", b.Seq, err)
	}

	s.logger.Debug("block inserted",
		zap.Int64("id", b.Seq),
		zap.String("hash", b.Hash),
	)
	return nil
}

// List implements Store. O(n) in chain length; the whole chain is loaded.
func (s *PostgresStore) List(ctx context.Context) ([]Block, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+blockColumns+` FROM blocks ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var out []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.Seq, &b.Timestamp, &b.Payload, &b.PrevHash, &b.Hash); err != nil {
			return nil, fmt.Errorf("scan block row: %w", err)
		}
		b.Timestamp = b.Timestamp.UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// Last implements Store.
func (s *PostgresStore) Last(ctx context.Context) (Block, bool, error) {
	return s.scanOne(ctx, `SELECT `+blockColumns+` FROM blocks ORDER BY id DESC LIMIT 1`)
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, seq int64) (Block, bool, error) {
	return s.scanOne(ctx, `SELECT `+blockColumns+` FROM blocks WHERE id = $1`, seq)
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, b Block) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE blocks SET timestamp = $2, data = $3, previous_hash = $4, current_hash = $5
		 WHERE id = $1`,
		b.Seq, b.Timestamp, b.Payload, b.PrevHash, b.Hash,
	)
	if err != nil {
		return fmt.Errorf("update block %d: %w", b.Seq, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(ctx context.Context, query string, args ...any) (Block, bool, error) {
	var b Block
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&b.Seq, &b.Timestamp, &b.Payload, &b.PrevHash, &b.Hash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, fmt.Errorf("get block: %w", err)
	}
	b.Timestamp = b.Timestamp.UTC()
	return b, true, nil
}
