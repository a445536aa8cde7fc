package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/prxssh/dottorrent/internal/bencode"
	"github.com/prxssh/dottorrent/internal/metafile"
)

var infoRaw bool

var infoCmd = &cobra.Command{
	Use:   "info <metafile>",
	Short: "Print a metainfo file's contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoRaw, "raw", false, "dump the decoded bencode tree as JSON instead of a summary")
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return ioErrorf("reading %q: %w", path, err)
	}

	if infoRaw {
		sink := bencode.NewJSONSink(os.Stdout)
		if err := bencode.Parse(raw, sink, bencode.DefaultOptions()); err != nil {
			return validationErrorf("parsing %q: %w", path, err)
		}
		fmt.Println()
		return nil
	}

	mf, err := metafile.Parse(raw)
	if err != nil {
		return validationErrorf("parsing %q: %w", path, err)
	}
	printInfo(mf)
	return nil
}

func printInfo(mf *metafile.Metafile) {
	storage := mf.Storage

	fmt.Printf("Name: %s\n", mf.Name)
	fmt.Printf("Size: %s\n", humanize.Bytes(uint64(storage.RegularTotalSize())))
	fmt.Printf("Piece length: %s\n", humanize.Bytes(uint64(storage.PieceSize)))
	fmt.Printf("Protocol: %s\n", storage.Protocol())
	fmt.Printf("Files: %d\n", len(storage.Files))
	fmt.Printf("Private: %v\n", mf.Private)
	if mf.Comment != "" {
		fmt.Printf("Comment: %s\n", mf.Comment)
	}
	if mf.CreatedBy != "" {
		fmt.Printf("Created by: %s\n", mf.CreatedBy)
	}
	if !mf.CreationDate.IsZero() {
		fmt.Printf("Created: %s\n", mf.CreationDate.Format("2006-01-02 15:04:05 MST"))
	}
	if mf.Source != "" {
		fmt.Printf("Source: %s\n", mf.Source)
	}
	if tiers := mf.Announce.Tiers(); len(tiers) > 0 {
		fmt.Println("Trackers:")
		for i, tier := range tiers {
			for _, u := range tier {
				fmt.Printf("  [%d] %s\n", i, u)
			}
		}
	}
	for _, ws := range mf.WebSeeds {
		fmt.Printf("Web seed: %s\n", ws)
	}

	if v1, err := mf.InfohashV1(); err == nil {
		fmt.Printf("Infohash v1: %s\n", v1.String())
	}
	if v2, err := mf.InfohashV2(); err == nil {
		fmt.Printf("Infohash v2: %s\n", v2.String())
	}

	if len(storage.Files) > 1 {
		fmt.Println("Contents:")
		for _, f := range storage.Files {
			if f.IsPadding() {
				continue
			}
			fmt.Printf("  %-10s %s\n", humanize.Bytes(uint64(f.Size)), f.PathString())
		}
	}
}
