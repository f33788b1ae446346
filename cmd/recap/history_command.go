package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"recap/internal/runstore"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			headers := []string{"ID", "Status", "URL", "Provenance", "Lang", "Detail", "Updated"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					string(run.Status),
					run.URL,
					run.Provenance,
					run.Language,
					historyDetail(run),
					run.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}

func historyDetail(run *runstore.Run) string {
	if run.Status == runstore.StatusFailed {
		if run.ErrorKind != "" {
			return run.ErrorKind + ": " + run.ErrorDetail
		}
		return run.ErrorDetail
	}
	if run.ArtifactPath != "" {
		return run.ArtifactPath
	}
	return ""
}
