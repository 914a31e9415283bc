package chain_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmerrifield20/chainledger/internal/chain"
)

func openLevelDB(t *testing.T, dir string) *chain.LevelDBStore {
	t.Helper()
	s, err := chain.OpenLevelDBStore(dir, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestLevelDBStore_ledgerRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	s := openLevelDB(t, dir)

	l := chain.New(s, chain.WithClock(fixedClock))
	created, err := l.EnsureGenesis(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	for i := 0; i < 11; i++ {
		_, err := l.Append(ctx, "tx")
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	// Reopen and check the chain survived intact and in order.
	s = openLevelDB(t, dir)
	defer s.Close()
	l = chain.New(s, chain.WithClock(fixedClock))

	created, err = l.EnsureGenesis(ctx)
	require.NoError(t, err)
	assert.False(t, created, "genesis must not be recreated on a populated store")

	n, err := l.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	blocks, err := l.All(ctx)
	require.NoError(t, err)
	for i, b := range blocks {
		assert.Equal(t, int64(i+1), b.Seq)
	}

	res := chain.Verify(blocks)
	assert.True(t, res.Valid, "errors: %v", res.Errors)

	b, err := l.Append(ctx, "after reopen")
	require.NoError(t, err)
	assert.Equal(t, int64(13), b.Seq)
}

func TestLevelDBStore_duplicateAndMissing(t *testing.T) {
	s := openLevelDB(t, t.TempDir())
	defer s.Close()

	blk := chain.Block{Seq: 1, Timestamp: fixedTime, Payload: "p", PrevHash: "0", Hash: "h"}
	require.NoError(t, s.Insert(ctx, blk))
	assert.ErrorIs(t, s.Insert(ctx, blk), chain.ErrDuplicateSeq)
	assert.ErrorIs(t, s.Update(ctx, chain.Block{Seq: 2}), chain.ErrNotFound)

	_, ok, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p", got.Payload)
	assert.True(t, got.Timestamp.Equal(fixedTime))
}

func TestLevelDBStore_tamperDetected(t *testing.T) {
	s := openLevelDB(t, t.TempDir())
	defer s.Close()

	l := chain.New(s)
	_, err := l.EnsureGenesis(ctx)
	require.NoError(t, err)
	_, err = l.Append(ctx, "tx1")
	require.NoError(t, err)

	_, ok, err := l.Corrupt(ctx, 1, "HACKED")
	require.NoError(t, err)
	require.True(t, ok)

	res, err := chain.NewAuditor(l).Audit(ctx)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 1)
}
