package main

import (
	"context"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/prxssh/dottorrent/internal/digest"
	"github.com/prxssh/dottorrent/internal/metafile"
	"github.com/prxssh/dottorrent/internal/pipeline"
)

var (
	createProtocol    string
	createPieceExp    uint
	createAnnounce    []string
	createWebSeeds    []string
	createOutput      string
	createName        string
	createComment     string
	createSource      string
	createPrivate     bool
	createNoDate      bool
	createThreads     int
	createChecksums   []string
	createExclude     []string
	createMaxMemoryMB int
)

var createCmd = &cobra.Command{
	Use:   "create <target>",
	Short: "Create a metainfo file from a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&createProtocol, "protocol", "hybrid", "metainfo protocol: v1, v2, or hybrid")
	createCmd.Flags().UintVarP(&createPieceExp, "piece-size", "l", 0, "piece size as 2^n bytes (15-24, automatic if 0)")
	createCmd.Flags().StringArrayVarP(&createAnnounce, "announce", "a", nil, "tracker announce URL, repeatable; each flag starts a new tier")
	createCmd.Flags().StringArrayVarP(&createWebSeeds, "web-seed", "w", nil, "BEP 19 web seed URL, repeatable")
	createCmd.Flags().StringVarP(&createOutput, "output", "o", "", "output path (default: <name>.torrent)")
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "torrent name (default: basename of target)")
	createCmd.Flags().StringVarP(&createComment, "comment", "c", "", "comment string")
	createCmd.Flags().StringVarP(&createSource, "source", "s", "", "source tag (changes the infohash per tracker)")
	createCmd.Flags().BoolVarP(&createPrivate, "private", "p", false, "set the private flag")
	createCmd.Flags().BoolVarP(&createNoDate, "no-date", "d", false, "omit the creation date")
	createCmd.Flags().IntVarP(&createThreads, "threads", "t", 2, "concurrent piece-hashing workers")
	createCmd.Flags().StringSliceVar(&createChecksums, "checksum", nil, "extra whole-file checksum to compute (sha1, sha256, sha512, md5, blake2b-512, blake2s-256), repeatable")
	createCmd.Flags().StringArrayVar(&createExclude, "exclude", nil, "glob pattern of files to exclude, repeatable")
	createCmd.Flags().IntVar(&createMaxMemoryMB, "max-memory", 128, "maximum buffered memory in MiB")
}

func runCreate(cmd *cobra.Command, args []string) error {
	target := filepath.Clean(args[0])
	info, err := os.Stat(target)
	if err != nil {
		return ioErrorf("cannot stat %q: %w", target, err)
	}

	protocol, err := parseProtocol(createProtocol)
	if err != nil {
		return usageErrorf("%w", err)
	}

	name := createName
	if name == "" {
		name = filepath.Base(target)
	}

	storage, err := buildStorage(target, info)
	if err != nil {
		return err
	}
	if len(storage.Files) == 0 {
		return validationErrorf("no files found under %q (all excluded or empty directory)", target)
	}

	if createPieceExp != 0 {
		if createPieceExp < 15 || createPieceExp > 24 {
			return usageErrorf("piece size exponent must be between 15 (32 KiB) and 24 (16 MiB)")
		}
		if err := storage.SetPieceSize(int64(1) << createPieceExp); err != nil {
			return validationErrorf("%w", err)
		}
	} else {
		if err := storage.SetPieceSize(metafile.AutoPieceSize(storage.TotalSize())); err != nil {
			return validationErrorf("%w", err)
		}
	}

	if protocol == metafile.ProtocolHybrid {
		if err := storage.OptimizeAlignment(); err != nil {
			return validationErrorf("%w", err)
		}
	}

	checksums, err := parseChecksums(createChecksums)
	if err != nil {
		return usageErrorf("%w", err)
	}

	opts := pipeline.DefaultOptions()
	opts.Threads = createThreads
	opts.MaxMemory = int64(createMaxMemoryMB) << 20
	opts.Checksums = checksums

	hasher, err := pipeline.NewStorageHasher(storage, protocol, opts)
	if err != nil {
		return validationErrorf("%w", err)
	}

	bar := progressbar.NewOptions64(storage.TotalSize(),
		progressbar.OptionSetDescription("hashing"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	hasher.Start(ctx)

	done := make(chan error, 1)
	go func() { done <- hasher.Wait() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var waitErr error
loop:
	for {
		select {
		case waitErr = <-done:
			break loop
		case <-ticker.C:
			bar.Set64(hasher.BytesDone())
		}
	}
	bar.Finish()
	if waitErr != nil {
		return ioErrorf("hashing %q: %w", target, waitErr)
	}

	mf := metafile.New(target)
	mf.Storage = storage
	mf.Name = name
	mf.Comment = createComment
	mf.Source = createSource
	mf.Private = createPrivate
	mf.CreatedBy = "dottorrent"
	if !createNoDate {
		mf.CreationDate = time.Now()
	}
	mf.WebSeeds = createWebSeeds
	if err := attachAnnounceTiers(mf, createAnnounce); err != nil {
		return usageErrorf("%w", err)
	}

	out := createOutput
	if out == "" {
		out = name + ".torrent"
	}
	encoded, err := mf.Encode()
	if err != nil {
		return validationErrorf("encoding metafile: %w", err)
	}
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		return ioErrorf("writing %q: %w", out, err)
	}

	printCreateSummary(mf, storage, out)
	return nil
}

func parseProtocol(s string) (metafile.Protocol, error) {
	switch strings.ToLower(s) {
	case "v1":
		return metafile.ProtocolV1, nil
	case "v2":
		return metafile.ProtocolV2, nil
	case "hybrid":
		return metafile.ProtocolHybrid, nil
	default:
		return metafile.ProtocolNone, fmt.Errorf("unknown protocol %q (want v1, v2, or hybrid)", s)
	}
}

func parseChecksums(names []string) ([]digest.Algorithm, error) {
	out := make([]digest.Algorithm, 0, len(names))
	for _, n := range names {
		algo := digest.Algorithm(strings.ToLower(n))
		if algo.Size() == 0 {
			return nil, fmt.Errorf("unknown checksum algorithm %q", n)
		}
		out = append(out, algo)
	}
	return out, nil
}

func attachAnnounceTiers(mf *metafile.Metafile, urls []string) error {
	for tier, u := range urls {
		if err := mf.Announce.Insert(u, tier); err != nil {
			return err
		}
	}
	return nil
}

// buildStorage walks target, applying createExclude glob patterns
// relative to target, and returns a FileStorage with every surviving
// file added in sorted path order for deterministic torrent layout.
func buildStorage(target string, info os.FileInfo) (*metafile.FileStorage, error) {
	root := target
	if !info.IsDir() {
		root = filepath.Dir(target)
	}
	storage := metafile.NewFileStorage(root)

	type found struct {
		relPath string
		size    int64
	}
	var files []found

	if !info.IsDir() {
		rel := filepath.Base(target)
		if excluded(rel, createExclude) {
			return storage, nil
		}
		files = append(files, found{relPath: rel, size: info.Size()})
	} else {
		err := filepath.Walk(target, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(target, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if excluded(rel, createExclude) {
				return nil
			}
			files = append(files, found{relPath: rel, size: fi.Size()})
			return nil
		})
		if err != nil {
			return nil, ioErrorf("walking %q: %w", target, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].relPath < files[j].relPath })

	for _, f := range files {
		entry := &metafile.FileEntry{
			Path: strings.Split(f.relPath, "/"),
			Size: f.size,
		}
		if err := storage.AddFile(entry); err != nil {
			return nil, validationErrorf("%w", err)
		}
	}
	return storage, nil
}

func excluded(relPath string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

func printCreateSummary(mf *metafile.Metafile, storage *metafile.FileStorage, out string) {
	fmt.Printf("Name: %s\n", mf.Name)
	fmt.Printf("Size: %s\n", humanize.Bytes(uint64(storage.TotalSize())))
	fmt.Printf("Piece length: %s (2^%d)\n", humanize.Bytes(uint64(storage.PieceSize)), bits.Len64(uint64(storage.PieceSize))-1)
	fmt.Printf("Protocol: %s\n", storage.Protocol())
	fmt.Printf("Files: %d\n", len(storage.Files))
	fmt.Printf("Private: %v\n", mf.Private)
	fmt.Printf("Output: %s\n", out)

	if v1, err := mf.InfohashV1(); err == nil {
		fmt.Printf("Infohash v1: %s\n", v1.String())
	}
	if v2, err := mf.InfohashV2(); err == nil {
		fmt.Printf("Infohash v2: %s\n", v2.String())
	}
	if magnet, err := mf.MagnetURI(); err == nil {
		fmt.Printf("Magnet: %s\n", magnet)
	}
}
