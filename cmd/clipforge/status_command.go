package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/progress"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show task progress, for one task or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				record, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("no task with ID %s", args[0])
				}
				printRecords(cmd, []*progress.Record{record})
				return nil
			}

			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
				return nil
			}
			printRecords(cmd, records)
			return nil
		},
	}
}

func printRecords(cmd *cobra.Command, records []*progress.Record) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		detail := r.Message
		if r.Status == progress.StatusCompleted && r.OutputPath != "" {
			detail = r.OutputPath
		}
		rows = append(rows, []string{
			r.TaskID,
			string(r.Status),
			strconv.Itoa(r.Percent) + "%",
			detail,
			r.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Task", "Status", "Progress", "Detail", "Updated"}, rows))
}
