package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prxssh/dottorrent/internal/metafile"
)

var (
	editAddTracker    []string
	editRemoveTracker []string
	editComment       string
	editSource        string
	editPrivate       string
	editAddSimilar    []string
	editAddCollection []string
	editOutput        string
)

var editCmd = &cobra.Command{
	Use:   "edit <metafile>",
	Short: "Edit a metainfo file's metadata in place",
	Long: "Edits trackers, comment, source, the private flag, similar-torrent\n" +
		"hashes, and collections. Source and the private flag are info-dict\n" +
		"fields, so changing them changes the infohash. Name, file layout and\n" +
		"piece hashes are never touched.",
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringArrayVar(&editAddTracker, "add-tracker", nil, "announce URL to add as a new tier, repeatable")
	editCmd.Flags().StringArrayVar(&editRemoveTracker, "remove-tracker", nil, "announce URL to remove, repeatable")
	editCmd.Flags().StringVar(&editComment, "comment", "", "replace the comment")
	editCmd.Flags().StringVar(&editSource, "source", "", "replace the source tag")
	editCmd.Flags().StringVar(&editPrivate, "private", "", "set the private flag: true or false")
	editCmd.Flags().StringArrayVar(&editAddSimilar, "add-similar", nil, "hex-encoded infohash of a similar torrent, repeatable")
	editCmd.Flags().StringArrayVar(&editAddCollection, "add-collection", nil, "collection name to add, repeatable")
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "write the result to a new path instead of overwriting the input")
}

func runEdit(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return ioErrorf("reading %q: %w", path, err)
	}
	mf, err := metafile.Parse(raw)
	if err != nil {
		return validationErrorf("parsing %q: %w", path, err)
	}

	base := len(mf.Announce.Tiers())
	for i, u := range editAddTracker {
		if err := mf.Announce.Insert(u, base+i); err != nil {
			return validationErrorf("adding tracker %q: %w", u, err)
		}
	}
	for _, u := range editRemoveTracker {
		mf.Announce.Erase(u)
	}

	if cmd.Flags().Changed("comment") {
		mf.SetComment(editComment)
	}
	if cmd.Flags().Changed("source") {
		mf.SetSource(editSource)
	}
	if editPrivate != "" {
		switch editPrivate {
		case "true":
			mf.SetPrivate(true)
		case "false":
			mf.SetPrivate(false)
		default:
			return usageErrorf("--private must be \"true\" or \"false\", got %q", editPrivate)
		}
	}
	for _, hexHash := range editAddSimilar {
		decoded, err := hex.DecodeString(hexHash)
		if err != nil {
			return usageErrorf("--add-similar %q is not valid hex: %w", hexHash, err)
		}
		if err := mf.AddSimilar(decoded); err != nil {
			return validationErrorf("%w", err)
		}
	}
	for _, name := range editAddCollection {
		mf.AddCollection(name)
	}

	encoded, err := mf.Encode()
	if err != nil {
		return validationErrorf("encoding metafile: %w", err)
	}

	out := editOutput
	if out == "" {
		out = path
	}
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		return ioErrorf("writing %q: %w", out, err)
	}

	fmt.Printf("Wrote %s\n", out)
	return nil
}
