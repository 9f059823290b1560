package invoice

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// WriteText prints the document as a plain-text table, for previews in a terminal.
func WriteText(w io.Writer, doc *Document) error {
	if _, err := fmt.Fprintf(w, "%s\n\n", doc.Title); err != nil {
		return err
	}
	for _, m := range doc.Meta {
		if _, err := fmt.Fprintln(w, m); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(doc.Header)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	table.AppendBulk(doc.Rows)
	table.Render()

	_, err := fmt.Fprintf(w, "\n%s\n", doc.TotalLine)
	return err
}
