package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/pipeline"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and provider credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, 4)
			for _, cap := range pipeline.Capabilities(cfg) {
				state := "ok"
				if !cap.Available {
					state = "missing"
				}
				rows = append(rows, []string{cap.Name, state, cap.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "State", "Detail"}, rows))
			return nil
		},
	}
}
