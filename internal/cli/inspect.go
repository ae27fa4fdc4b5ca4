package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"product-meta-viewer/internal/config"
	"product-meta-viewer/internal/report"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var q report.PageQuery
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show one product's fields, or compare two products",
		Example: `  metaviewer inspect --sku ABC
  metaviewer inspect --id 101 --compare-id 102
  metaviewer inspect --fixture testdata/catalog.yaml --sku WID-RED --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if q.First().Empty() {
				return errors.New(report.MsgProvideReference)
			}
			a, err := openApp(cmd.Context(), config.Get())
			if err != nil {
				return err
			}
			defer a.Close()

			f := a.reports.Formatter()
			out := cmd.OutOrStdout()
			if q.Second().Empty() {
				d, err := a.reports.Detail(cmd.Context(), q.First())
				if err != nil {
					return err
				}
				if root.jsonOutput {
					return printJSON(out, d.Fields.Fields())
				}
				return printDetail(out, d, f)
			}

			c, err := a.reports.Compare(cmd.Context(), q.First(), q.Second())
			if err != nil {
				return err
			}
			if root.jsonOutput {
				return printJSON(out, c.Rows)
			}
			return printComparison(out, c, f)
		},
	}
	cmd.Flags().StringVar(&q.SKU1, "sku", "", "SKU of the product")
	cmd.Flags().Int64Var(&q.ID1, "id", 0, "ID of the product (ignored when --sku is set)")
	cmd.Flags().StringVar(&q.SKU2, "compare-sku", "", "SKU of a second product to compare against")
	cmd.Flags().Int64Var(&q.ID2, "compare-id", 0, "ID of a second product to compare against")
	return cmd
}
