package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prxssh/dottorrent/internal/metafile"
)

var magnetCmd = &cobra.Command{
	Use:   "magnet <metafile>",
	Short: "Print the magnet URI for a metainfo file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMagnet,
}

func init() {
	rootCmd.AddCommand(magnetCmd)
}

func runMagnet(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return ioErrorf("reading %q: %w", path, err)
	}
	mf, err := metafile.Parse(raw)
	if err != nil {
		return validationErrorf("parsing %q: %w", path, err)
	}
	uri, err := mf.MagnetURI()
	if err != nil {
		return validationErrorf("building magnet URI: %w", err)
	}
	fmt.Println(uri)
	return nil
}
