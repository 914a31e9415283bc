package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/chainledger/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const defaultServerURL = "http://localhost:8080"

var (
	serverURL   string
	cfgFile     string
	adminSecret string
	outFormat   string
	timeout     time.Duration
)

// errChainInvalid makes `chainctl verify` exit non-zero on a broken chain.
var errChainInvalid = errors.New("chain integrity check failed")

func main() {
	if err := executeContext(context.Background(), os.Args[1:]...); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chainctl",
	Short: "Command-line client for the chainledger block ledger",
	Long: `chainctl talks to a running ledgerd server.

It appends blocks, lists and inspects them, verifies the integrity of the
whole chain, and (for demonstrations) tampers with a block so that
verification has something to find.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.chainctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("chainctl")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = defaultServerURL
		}
		if adminSecret == "" {
			adminSecret = viper.GetString("admin_secret")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.chainctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ledgerd base URL (default "+defaultServerURL+")")
	rootCmd.PersistentFlags().StringVar(&outFormat, "format", "text", "Output format: text or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	tamperCmd.Flags().StringVar(&adminSecret, "admin-secret", "", "Admin secret for the tamper endpoint")

	rootCmd.AddCommand(addCmd, listCmd, getCmd, verifyCmd, tamperCmd, statusCmd, versionCmd)
}

func newClient() (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(timeout)}
	if adminSecret != "" {
		opts = append(opts, client.WithAdminSecret(adminSecret))
	}
	return client.New(serverURL, opts...)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid block id %q: must be a positive integer", s)
	}
	return id, nil
}

// ── add ──────────────────────────────────────────────────────────────────────

var addCmd = &cobra.Command{
	Use:   "add <data...>",
	Short: "Append a block holding the given data",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.AddBlock(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printBlocks(cmd.OutOrStdout(), []client.Block{*b}, true)
	},
}

// ── list ─────────────────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every block in sequence order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		blocks, err := c.ListBlocks(cmd.Context())
		if err != nil {
			return err
		}
		return printBlocks(cmd.OutOrStdout(), blocks, false)
	},
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.GetBlock(cmd.Context(), id)
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("block %d does not exist", id)
		}
		if err != nil {
			return err
		}
		return printBlocks(cmd.OutOrStdout(), []client.Block{*b}, true)
	},
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the whole chain",
	Long: `verify asks the server to recompute every block hash and check every
link. All problems are listed, not just the first. The command exits
non-zero when the chain is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Verify(cmd.Context())
		if err != nil {
			return err
		}
		if err := printResult(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Valid {
			return errChainInvalid
		}
		return nil
	},
}

// ── tamper ───────────────────────────────────────────────────────────────────

var tamperCmd = &cobra.Command{
	Use:   "tamper <id> <data...>",
	Short: "Overwrite a block's data WITHOUT rehashing (demonstration only)",
	Long: `tamper replaces the data of an existing block but leaves its stored hash
untouched, deliberately breaking the chain. Run 'chainctl verify' afterwards
to see the damage reported.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		b, err := c.TamperBlock(cmd.Context(), id, strings.Join(args[1:], " "))
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("block %d does not exist", id)
		}
		if err != nil {
			return err
		}
		return printBlocks(cmd.OutOrStdout(), []client.Block{*b}, true)
	},
}

// ── status ───────────────────────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the chain length and tip hash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ov, err := c.Overview(cmd.Context())
		if err != nil {
			return err
		}
		if outFormat == "json" {
			return writeJSON(cmd.OutOrStdout(), ov)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server: %s\nBlocks: %d\nTip:    %s\n", serverURL, ov.Blocks, ov.Tip)
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chainctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chainctl %s\n", version)
	},
}

// ── output ───────────────────────────────────────────────────────────────────

func printBlocks(w io.Writer, blocks []client.Block, single bool) error {
	if outFormat == "json" {
		if single && len(blocks) == 1 {
			return writeJSON(w, blocks[0])
		}
		return writeJSON(w, blocks)
	}

	if single && len(blocks) == 1 {
		b := blocks[0]
		fmt.Fprintf(w, "ID:            %d\n", b.ID)
		fmt.Fprintf(w, "Timestamp:     %s\n", b.Timestamp.UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "Data:          %s\n", b.Data)
		fmt.Fprintf(w, "Previous hash: %s\n", b.PreviousHash)
		fmt.Fprintf(w, "Current hash:  %s\n", b.CurrentHash)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIMESTAMP\tHASH\tPREV\tDATA")
	for _, b := range blocks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			b.ID, b.Timestamp.UTC().Format(time.RFC3339),
			short(b.CurrentHash), short(b.PreviousHash), b.Data)
	}
	return tw.Flush()
}

func printResult(w io.Writer, res *client.VerificationResult) error {
	if outFormat == "json" {
		return writeJSON(w, res)
	}
	if res.Valid {
		fmt.Fprintf(w, "✓ Chain valid (%d blocks)\n", res.TotalBlocks)
		return nil
	}
	fmt.Fprintf(w, "✗ Chain INVALID (%d blocks, %d problems)\n", res.TotalBlocks, len(res.Errors))
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// short abbreviates a hex hash for tabular output.
func short(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}

// executeContext runs the root command with args.
func executeContext(ctx context.Context, args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
