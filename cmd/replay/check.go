package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/ingestion/source"
	"trackframe-worker-go/internal/services/ingestion/validation"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate replay files without dispatching",
		Long:  "Parse each replay file and report how its records classify. Nothing is written.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	failed := 0
	for _, path := range args {
		events, err := source.ReadReplayFile(path)
		if err != nil {
			printError(stderr, "%s: %v", path, err)
			failed++
			continue
		}

		kinds := map[models.EventKind]int{}
		reasons := map[string]int{}
		for _, raw := range events {
			res := validation.Validate(raw)
			if !res.OK {
				reasons[res.Reason]++
				continue
			}
			kinds[res.Event.Kind]++
		}

		printHeader(stdout, "%s: %d records", path, len(events))
		for _, kind := range []models.EventKind{models.KindObjectTrack, models.KindFrame, models.KindUnknown} {
			if kinds[kind] > 0 {
				printInfo(stdout, "  %-14s %d", kind, kinds[kind])
			}
		}

		reasonKeys := make([]string, 0, len(reasons))
		for reason := range reasons {
			reasonKeys = append(reasonKeys, reason)
		}
		sort.Strings(reasonKeys)
		for _, reason := range reasonKeys {
			printWarn(stdout, "rejected (%s): %d", reason, reasons[reason])
		}
		if len(reasons) == 0 {
			printSuccess(stdout, "all records valid")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(args))
	}
	return nil
}
