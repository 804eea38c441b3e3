package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/ingestion"
	"trackframe-worker-go/internal/services/ingestion/dispatch"
	"trackframe-worker-go/internal/services/ingestion/rawlog"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Replay event files through ingestion",
		Long:  "Validate, normalize and dispatch every record of each replay file, in file order",
		Example: `  trackframe-replay run replay/tracks.jsonl
  trackframe-replay run --raw-log replay_out/raw_events.jsonl --out replay_out/events.jsonl a.json b.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReplay,
	}

	cmd.Flags().String("raw-log", "", "append accepted raw events to this JSON Lines file")
	cmd.Flags().StringP("out", "o", "", "write internal events to this JSON Lines file")
	cmd.Flags().Bool("json", false, "print internal events as JSON instead of a summary line")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	rawLogPath, _ := cmd.Flags().GetString("raw-log")
	outPath, _ := cmd.Flags().GetString("out")
	asJSON, _ := cmd.Flags().GetBool("json")
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	var encoders []*json.Encoder
	if asJSON {
		encoders = append(encoders, json.NewEncoder(stdout))
	}
	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		encoders = append(encoders, json.NewEncoder(f))
	}

	var writeErr error
	dispatcher := dispatch.NewDirect(func(ev models.InternalEvent) {
		if !asJSON {
			printInfo(stdout, "  %s  camera=%s track=%s event=%s", ev.Timestamp.Format(time.RFC3339), ev.CameraID, ev.TrackID, ev.EventID)
		}
		for _, enc := range encoders {
			if err := enc.Encode(ev); err != nil && writeErr == nil {
				writeErr = err
			}
		}
	})

	var opts []ingestion.Option
	if rawLogPath != "" {
		store, err := rawlog.Open(rawLogPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, ingestion.WithRawSink(store))
	}

	svc, err := ingestion.NewService(dispatcher, opts...)
	if err != nil {
		return err
	}

	var failed []string
	for _, path := range args {
		if !asJSON {
			printHeader(stdout, "%s", path)
		}
		count, err := svc.RunReplay(path)
		if err != nil {
			printError(stderr, "%s: %v", path, err)
			failed = append(failed, path)
			continue
		}
		if !asJSON {
			printSuccess(stdout, "%s: %d events dispatched", path, count)
		}
	}

	stats := svc.Stats()
	if !asJSON {
		printInfo(stdout, "received=%d dispatched=%d rejected=%d skipped=%d", stats.Received, stats.Dispatched, stats.Rejected, stats.Skipped)
		if stats.RawLogFailures > 0 {
			printWarn(stdout, "%d raw events could not be written to %s", stats.RawLogFailures, rawLogPath)
		}
	}

	if writeErr != nil {
		return fmt.Errorf("write internal events: %w", writeErr)
	}
	if len(failed) > 0 {
		return errors.New("replay failed for " + strings.Join(failed, ", "))
	}
	return nil
}
