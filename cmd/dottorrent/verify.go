package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/prxssh/dottorrent/internal/metafile"
	"github.com/prxssh/dottorrent/internal/pipeline"
)

var verifyMaxMemoryMB int

var verifyCmd = &cobra.Command{
	Use:   "verify <metafile> <root>",
	Short: "Verify a directory's contents against a metainfo file",
	Args:  cobra.ExactArgs(2),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().IntVar(&verifyMaxMemoryMB, "max-memory", 128, "maximum buffered memory in MiB")
}

func runVerify(cmd *cobra.Command, args []string) error {
	metafilePath, root := args[0], args[1]

	raw, err := os.ReadFile(metafilePath)
	if err != nil {
		return ioErrorf("reading %q: %w", metafilePath, err)
	}
	mf, err := metafile.Parse(raw)
	if err != nil {
		return validationErrorf("parsing %q: %w", metafilePath, err)
	}
	mf.Storage.Root = filepath.Clean(root)

	protocol := mf.Storage.Protocol()
	if protocol == metafile.ProtocolNone {
		return validationErrorf("%q carries no piece hashes to verify against", metafilePath)
	}

	opts := pipeline.DefaultOptions()
	opts.MaxMemory = int64(verifyMaxMemoryMB) << 20

	verifier, err := pipeline.NewStorageVerifier(mf.Storage, protocol, opts)
	if err != nil {
		return validationErrorf("%w", err)
	}

	bar := progressbar.NewOptions64(mf.Storage.TotalSize(),
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	verifier.Start(ctx)

	done := make(chan error, 1)
	go func() { done <- verifier.Wait() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var waitErr error
loop:
	for {
		select {
		case waitErr = <-done:
			break loop
		case <-ticker.C:
			bar.Set64(verifier.BytesDone())
		}
	}
	bar.Finish()
	if waitErr != nil {
		return ioErrorf("verifying %q: %w", root, waitErr)
	}

	allGood := true
	for i, f := range mf.Storage.Files {
		if f.IsPadding() {
			continue
		}
		pct := verifier.Percentage(i) * 100
		status := "OK"
		if pct < 100 {
			status = "BAD"
			allGood = false
		}
		fmt.Printf("%-6s %6.2f%%  %s\n", status, pct, f.PathString())
	}

	if !allGood {
		return &exitError{code: 3, err: fmt.Errorf("one or more files failed verification")}
	}
	fmt.Println("All pieces verified.")
	return nil
}
