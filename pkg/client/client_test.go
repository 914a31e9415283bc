package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/chainledger/internal/api"
	"github.com/jmerrifield20/chainledger/internal/chain"
	"github.com/jmerrifield20/chainledger/pkg/client"
	"go.uber.org/zap"
)

var ctx = context.Background()

// ── Test server ─────────────────────────────────────────────────────────

func newServer(t *testing.T, tamper api.TamperConfig) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := chain.New(chain.NewMemoryStore())
	if _, err := ledger.EnsureGenesis(ctx); err != nil {
		t.Fatal(err)
	}
	h := api.NewBlockHandler(ledger, chain.NewAuditor(ledger), tamper, zap.NewNop())

	routerCtx, cancel := context.WithCancel(ctx)
	srv := httptest.NewServer(api.NewRouter(routerCtx, api.RouterConfig{}, h, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestNew_requiresURL(t *testing.T) {
	if _, err := client.New(""); err == nil {
		t.Error("expected error for empty base URL")
	}
}

func TestNew_rejectsBadTimeout(t *testing.T) {
	if _, err := client.New("http://x", client.WithTimeout(0)); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestAddAndList(t *testing.T) {
	srv := newServer(t, api.TamperConfig{})
	c := client.MustNew(srv.URL + "/")

	b, err := c.AddBlock(ctx, "tx1")
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != 2 || b.Data != "tx1" {
		t.Errorf("unexpected block: %+v", b)
	}

	blocks, err := c.ListBlocks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[1].PreviousHash != blocks[0].CurrentHash {
		t.Error("blocks are not linked")
	}
}

func TestGetBlock_notFound(t *testing.T) {
	srv := newServer(t, api.TamperConfig{})
	c := client.MustNew(srv.URL)

	if _, err := c.GetBlock(ctx, 1); err != nil {
		t.Fatalf("genesis lookup: %v", err)
	}
	_, err := c.GetBlock(ctx, 99)
	if !errors.Is(err, client.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyAndTamper(t *testing.T) {
	srv := newServer(t, api.TamperConfig{Enabled: true, AdminSecret: "s3cret"})

	c := client.MustNew(srv.URL, client.WithAdminSecret("s3cret"))
	if _, err := c.AddBlock(ctx, "tx1"); err != nil {
		t.Fatal(err)
	}

	res, err := c.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.TotalBlocks != 2 {
		t.Fatalf("expected valid chain, got %+v", res)
	}

	tampered, err := c.TamperBlock(ctx, 1, "HACKED")
	if err != nil {
		t.Fatal(err)
	}
	if tampered.Data != "HACKED" {
		t.Errorf("tamper response data: %q", tampered.Data)
	}

	res, err = c.Verify(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid || len(res.Errors) != 1 {
		t.Errorf("expected one integrity error, got %+v", res)
	}
}

func TestTamper_wrongSecret(t *testing.T) {
	srv := newServer(t, api.TamperConfig{Enabled: true, AdminSecret: "s3cret"})
	c := client.MustNew(srv.URL, client.WithAdminSecret("nope"))

	_, err := c.TamperBlock(ctx, 1, "x")
	if err == nil || !strings.Contains(err.Error(), "invalid admin secret") {
		t.Errorf("expected admin secret error, got %v", err)
	}
}

func TestOverview(t *testing.T) {
	srv := newServer(t, api.TamperConfig{})
	c := client.MustNew(srv.URL)

	b, _ := c.AddBlock(ctx, "tx1")
	ov, err := c.Overview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Blocks != 2 || ov.Tip != b.CurrentHash {
		t.Errorf("unexpected overview: %+v", ov)
	}
}
