// Command cache-refresh runs one reconciliation sweep over the source cache
// and prints its summary as JSON. It exits non-zero only when it cannot start
// or cannot list the stored keys; individual refresh failures are reported in
// the summary.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/Sternrassler/overfast-proxy/internal/app"
	"github.com/Sternrassler/overfast-proxy/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Refresh failed")
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	cfg := config.Default()
	return &cli.App{
		Name:      "cache-refresh",
		Usage:     "refresh source cache entries that are about to expire",
		Flags:     cfg.Flags(),
		Writer:    stdout,
		ErrWriter: stderr,
		Action: func(cctx *cli.Context) error {
			app.SetupLogging(cfg, stderr)
			return refresh(cctx.Context, cfg, stdout)
		},
	}
}

func refresh(ctx context.Context, cfg config.Config, out io.Writer) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Refresh.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
