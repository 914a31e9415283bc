package chain

import (
	"errors"
	"time"
)

const (
	// GenesisPrevHash is the previous hash recorded by the first block.
	GenesisPrevHash = "0"

	// GenesisPayload is the payload of the block created by EnsureGenesis.
	GenesisPayload = "Genesis Block"

	// MaxPayloadLen is the maximum payload length in characters.
	MaxPayloadLen = 1000
)

var (
	// ErrNotFound is returned by Store.Update when no block has the given sequence number.
	ErrNotFound = errors.New("chain: block not found")

	// ErrDuplicateSeq is returned by Store.Insert when the sequence number is taken.
	ErrDuplicateSeq = errors.New("chain: duplicate sequence number")

	// ErrPayloadTooLong is returned when a payload exceeds MaxPayloadLen characters.
	ErrPayloadTooLong = errors.New("chain: payload too long")
)

// Block is a single record in the chain. It is a value: stores hand out copies, so
// holding a Block never lets a caller alter what is persisted.
type Block struct {
	Seq       int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   string    `json:"data"`
	PrevHash  string    `json:"previousHash"`
	Hash      string    `json:"currentHash"`
}

// ExpectedHash recomputes the hash the block should carry given its stored fields.
func (b Block) ExpectedHash() string {
	return ComputeHash(b.Seq, b.Timestamp, b.Payload, b.PrevHash)
}

// newBlock stamps and seals a block. The hash is computed only after every other
// field is final.
func newBlock(seq int64, ts time.Time, payload, prevHash string) Block {
	b := Block{
		Seq:       seq,
		Timestamp: ts.UTC().Truncate(time.Second),
		Payload:   payload,
		PrevHash:  prevHash,
	}
	b.Hash = b.ExpectedHash()
	return b
}
