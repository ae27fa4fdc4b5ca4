package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"product-meta-viewer/internal/config"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find products and variations by name, SKU or attribute",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), config.Get())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.matcher.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if root.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"results": results})
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r.Text)
			}
			return nil
		},
	}
}
