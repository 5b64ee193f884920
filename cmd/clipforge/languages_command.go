package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/language"
)

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(language.Codes()))
			for _, code := range language.Codes() {
				rows = append(rows, []string{
					code,
					language.DisplayName(code),
					language.LocalizedName(code, cfg.UILanguage),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Code", "Name", "Localized"}, rows))
			return nil
		},
	}
}
