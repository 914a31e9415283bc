// Package chain implements an append-only, hash-linked block ledger.
//
// Every block records the SHA-256 of its predecessor, and its own hash covers its
// sequence number, timestamp, payload and previous hash. The first block (the
// genesis block) carries the sentinel previous hash "0". Verify walks the whole
// chain and reports every violation it finds instead of stopping at the first.
//
// The Ledger owns sequencing and linking; durability is delegated to a Store.
// Three implementations are provided:
//   - MemoryStore: in-process, for testing and development.
//   - PostgresStore: durable, backed by a pgx connection pool.
//   - LevelDBStore: durable, embedded key/value files on local disk.
package chain
