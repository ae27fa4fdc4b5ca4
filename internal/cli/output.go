package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"product-meta-viewer/internal/domain"
	"product-meta-viewer/internal/report"
)

func printJSON(w io.Writer, data interface{}) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

// oneLine flattens multi-line values for table cells.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func printDetail(w io.Writer, d *report.Detail, f *report.Formatter) error {
	fmt.Fprintf(w, "Product: %s (ID: %d)\nEdit: %s\n\n", d.Product.Name, d.Product.ID, d.EditURL)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, field := range d.Fields.Fields() {
		fmt.Fprintf(tw, "%s\t%s\n", field.Label, oneLine(f.PlainText(field.Value)))
	}
	return tw.Flush()
}

func printComparison(w io.Writer, c *report.Comparison, f *report.Formatter) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\tField\t%s (ID: %d)\t%s (ID: %d)\n", c.Left.Product.Name, c.Left.Product.ID, c.Right.Product.Name, c.Right.Product.ID)
	for _, row := range c.Rows {
		mark := ""
		if row.Differs {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, row.Label, cell(f, row.Left), cell(f, row.Right))
	}
	return tw.Flush()
}

func cell(f *report.Formatter, v domain.Value) string {
	if !v.Present() {
		return report.EmptyMarker
	}
	return oneLine(f.PlainText(v))
}
