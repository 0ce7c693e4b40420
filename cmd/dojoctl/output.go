package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/model"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
)

// console prints notifications as status lines.
type console struct {
	w io.Writer
}

func (c *console) Notify(n workflow.Notification) {
	mark := "✓"
	if n.Variant == workflow.VariantDestructive {
		mark = "✗"
	}
	if n.Description == "" {
		fmt.Fprintf(c.w, "%s %s\n", mark, n.Title)
		return
	}
	fmt.Fprintf(c.w, "%s %s: %s\n", mark, n.Title, n.Description)
}

func (c *console) Navigate(string) {}

func printEvents(w io.Writer, items []workflow.ListItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTART\tPRICE\tAVAILABILITY")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\n",
			it.Event.ID, it.Event.Name, it.Event.StartDate.Format(time.DateTime), it.Event.Prix, it.Gate.TicketsLeft)
	}
	return tw.Flush()
}

func printEvent(w io.Writer, e model.Event, g workflow.Gate) {
	fmt.Fprintf(w, "%s (%s)\n", e.Name, e.ID)
	fmt.Fprintf(w, "  %s\n", e.Bio)
	fmt.Fprintf(w, "  %s to %s\n", e.StartDate.Format(time.DateTime), e.EndDate.Format(time.DateTime))
	fmt.Fprintf(w, "  price %.2f, %s [%s]\n", e.Prix, g.TicketsLeft, g.Label)
}

func printRows(w io.Writer, rows []workflow.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE")
	for _, r := range rows {
		if r.Placeholder {
			fmt.Fprintf(tw, "\t%s\t\t\n", r.Name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Email, r.Phone)
	}
	return tw.Flush()
}

func printFieldErrors(w io.Writer, fe workflow.FieldErrors) {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %s: %s\n", f, fe[f])
	}
}
