package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"docwatch/internal/store"
)

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Show the persisted tracking snapshot",
		Long:  "Lists the submissions the daemon had in flight when it last persisted state.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			snapshots, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open snapshot store: %w", err)
			}
			defer snapshots.Close()

			records, err := snapshots.LoadSnapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No tracked submissions in the snapshot")
				return nil
			}

			ids := make([]string, 0, len(records))
			for id := range records {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				return records[ids[i]].SubmittedAt < records[ids[j]].SubmittedAt
			})

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				record := records[id]
				rows = append(rows, []string{
					record.SubmissionID,
					record.DisplayName,
					record.State,
					formatDocumentID(record.DocumentID),
					strconv.FormatBool(record.Enriched),
					strconv.Itoa(record.Attempts),
					record.SubmittedAt,
				})
			}

			headers := []string{"SUBMISSION", "FILE", "STATE", "DOC ID", "ENRICHED", "ATTEMPTS", "SUBMITTED"}
			if writerIsTerminal(out) {
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			}

			// Plain output for pipes and scripts.
			for _, row := range rows {
				for i, cell := range row {
					if i > 0 {
						fmt.Fprint(out, "\t")
					}
					fmt.Fprint(out, cell)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func formatDocumentID(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}
