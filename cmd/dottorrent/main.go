// Command dottorrent creates, verifies, and inspects BitTorrent v1/v2/
// hybrid metainfo files.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prxssh/dottorrent/pkg/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func setupLogger() {
	opts := &logging.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelWarn,
		},
		UseColor:          true,
		ShowSource:        false,
		TimeFormat:        time.RFC3339,
		LevelWidth:        7,
		FieldSeparator:    " | ",
		DisableHTMLEscape: true,
	}
	if verbose {
		opts.SlogOpts.Level = slog.LevelDebug
		opts.ShowSource = true
	}
	handler := logging.NewPrettyHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))
}
