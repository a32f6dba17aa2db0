package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/directional-star/diggit/pkg/persist"
	"github.com/directional-star/diggit/pkg/reporter"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

// renderComments writes comments as a table or as indented JSON.
func renderComments(w io.Writer, format string, comments []reporter.Comment) error {
	switch format {
	case FormatJSON:
		return persist.NewJSONCodec().Encode(w, comments)
	case FormatTable:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if len(comments) == 0 {
		color.New(color.FgGreen).Fprintln(w, "No comments.")

		return nil
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Report", "Location", "Message"})

	for _, c := range comments {
		tbl.AppendRow(table.Row{c.Report, c.Location, c.Message})
	}

	tbl.Render()

	color.New(color.FgYellow).Fprintf(w, "%s\n", english.Plural(len(comments), "comment", ""))

	return nil
}

func success(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func duration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Microsecond).String()
}
