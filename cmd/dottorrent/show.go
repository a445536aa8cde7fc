package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/prxssh/dottorrent/internal/metafile"
)

var showCmd = &cobra.Command{
	Use:   "show <field> <metafile>",
	Short: "Print a single field from a metainfo file",
	Long: "Supported fields: name, comment, source, private, created,\n" +
		"created-by, size, piece-length, protocol, trackers, webseeds,\n" +
		"infohash-v1, infohash-v2, magnet.",
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	field, path := strings.ToLower(args[0]), args[1]

	raw, err := os.ReadFile(path)
	if err != nil {
		return ioErrorf("reading %q: %w", path, err)
	}
	mf, err := metafile.Parse(raw)
	if err != nil {
		return validationErrorf("parsing %q: %w", path, err)
	}

	value, err := fieldValue(mf, field)
	if err != nil {
		return usageErrorf("%w", err)
	}
	fmt.Println(value)
	return nil
}

func fieldValue(mf *metafile.Metafile, field string) (string, error) {
	switch field {
	case "name":
		return mf.Name, nil
	case "comment":
		return mf.Comment, nil
	case "source":
		return mf.Source, nil
	case "private":
		return fmt.Sprintf("%v", mf.Private), nil
	case "created":
		if mf.CreationDate.IsZero() {
			return "", nil
		}
		return mf.CreationDate.Format("2006-01-02 15:04:05 MST"), nil
	case "created-by":
		return mf.CreatedBy, nil
	case "size":
		return humanize.Bytes(uint64(mf.Storage.RegularTotalSize())), nil
	case "piece-length":
		return humanize.Bytes(uint64(mf.Storage.PieceSize)), nil
	case "protocol":
		return string(mf.Storage.Protocol()), nil
	case "trackers":
		var lines []string
		for _, tier := range mf.Announce.Tiers() {
			lines = append(lines, strings.Join(tier, ", "))
		}
		return strings.Join(lines, "\n"), nil
	case "webseeds":
		return strings.Join(mf.WebSeeds, "\n"), nil
	case "infohash-v1":
		h, err := mf.InfohashV1()
		if err != nil {
			return "", err
		}
		return h.String(), nil
	case "infohash-v2":
		h, err := mf.InfohashV2()
		if err != nil {
			return "", err
		}
		return h.String(), nil
	case "magnet":
		return mf.MagnetURI()
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}
