// Package client is the Go SDK for the chainledger HTTP API.
//
// # Appending and reading blocks
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	b, err := c.AddBlock(ctx, "alice pays bob 5")
//	blocks, err := c.ListBlocks(ctx)
//
// GetBlock returns an error wrapping ErrNotFound when the id does not exist:
//
//	b, err := c.GetBlock(ctx, 42)
//	if errors.Is(err, client.ErrNotFound) {
//	    ...
//	}
//
// # Verifying the chain
//
// Verify returns the server's full report. An invalid chain is not an error;
// inspect Valid and Errors:
//
//	res, err := c.Verify(ctx)
//	if err == nil && !res.Valid {
//	    for _, e := range res.Errors {
//	        fmt.Println(e)
//	    }
//	}
//
// # Tampering (demonstration only)
//
// TamperBlock overwrites a block's data without recomputing its hash. Servers
// may disable it or require an admin secret, passed with WithAdminSecret.
package client
