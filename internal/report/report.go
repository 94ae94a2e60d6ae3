// Package report renders annotation metrics and payloads for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ayusman/rfbviz/internal/annotation"
)

// FrameRow is one line of a per-GUID frame report.
type FrameRow struct {
	Metrics     annotation.MetricRow
	Adjudicated bool
}

// newTable creates a markdown-styled table with left-aligned cells.
func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Frames writes one row per frame with its IOU scores and adjudication
// status, followed by the aggregation formula.
func Frames(w io.Writer, guid, aggregation string, rows []FrameRow) error {
	desc, err := annotation.DescribeAggregation(aggregation)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "## %s (%s)\n\n", guid, aggregation); err != nil {
		return err
	}

	table := newTable([]string{"Frame", "Key IOU", "Value IOU", "Pair IOU", "Agg IOU", "Adjudicated"}, w)
	for _, r := range rows {
		adjudicated := "no"
		if r.Adjudicated {
			adjudicated = "yes"
		}
		row := []string{r.Metrics.Frame, r.Metrics.Raw[0], r.Metrics.Raw[1], r.Metrics.Raw[2], r.Metrics.Raw[3], adjudicated}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\n%s\n", desc)
	return err
}

// Annotation writes one annotator's payload as indented JSON under a
// heading, the way the side-by-side text boxes show it.
func Annotation(w io.Writer, annotator string, payload map[string]any) error {
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "### Annotator %s\n\n%s\n\n", annotator, data)
	return err
}
