package chain

import (
	"context"
	"fmt"
)

// Result is the outcome of a full-chain verification.
type Result struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	TotalBlocks int      `json:"totalBlocks"`
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

// Verify checks every block in the given order and collects all violations:
// a stored hash that does not match its fields, a genesis block whose previous
// hash is not "0", and a previous hash that does not match the block before it.
// It never stops at the first problem.
func Verify(blocks []Block) Result {
	res := Result{Valid: true, Errors: []string{}, TotalBlocks: len(blocks)}
	if len(blocks) == 0 {
		res.addError("Blockchain is empty")
		return res
	}

	for i, curr := range blocks {
		if expected := curr.ExpectedHash(); expected != curr.Hash {
			res.addError("Block %d: Hash mismatch. Expected: %s, Found: %s (Block has been tampered)",
				curr.Seq, expected, curr.Hash)
		}

		if i == 0 {
			if curr.PrevHash != GenesisPrevHash {
				res.addError("Block %d: Genesis block should have previousHash = '%s', but found: %s",
					curr.Seq, GenesisPrevHash, curr.PrevHash)
			}
			continue
		}

		prev := blocks[i-1]
		if curr.PrevHash != prev.Hash {
			res.addError("Block %d: Previous hash mismatch. Chain is broken between blocks %d and %d",
				curr.Seq, prev.Seq, curr.Seq)
		}
	}
	return res
}

// Auditor verifies the chain held by a Ledger.
type Auditor struct {
	ledger *Ledger
}

// NewAuditor creates an Auditor over l.
func NewAuditor(l *Ledger) *Auditor {
	return &Auditor{ledger: l}
}

// Audit takes a snapshot of the chain and verifies it. Integrity problems are
// reported in the Result; the error is non-nil only if the snapshot failed.
func (a *Auditor) Audit(ctx context.Context) (Result, error) {
	blocks, err := a.ledger.All(ctx)
	if err != nil {
		return Result{}, err
	}
	return Verify(blocks), nil
}
