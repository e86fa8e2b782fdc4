package pdf

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotoconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/smallbiznis/ecoscape/internal/config"
)

const dateLayout = "Jan 2, 2006"

// column widths are maroto grid units and must add up to 12.
type column struct {
	Title string
	Width int
	Align align.Type
}

type summaryLine struct {
	Label string
	Value string
}

type document struct {
	Company     config.CompanyProfile
	Title       string
	Period      string
	GeneratedAt time.Time
	Landscape   bool
	Columns     []column
	Rows        [][]string
	Summary     []summaryLine
	Footnote    string
}

func render(ctx context.Context, doc document) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := marotoconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		})
	if doc.Landscape {
		builder = builder.WithOrientation(orientation.Horizontal)
	}

	m := maroto.New(builder.Build())
	if err := m.RegisterHeader(headerRows(doc)...); err != nil {
		return nil, err
	}

	m.AddRows(tableHeader(doc.Columns))
	for _, values := range doc.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.AddRows(tableRow(doc.Columns, values))
	}

	if len(doc.Summary) > 0 {
		m.AddRow(6)
		for _, s := range doc.Summary {
			m.AddRow(6,
				col.New(6),
				text.NewCol(3, s.Label, props.Text{Size: 9, Style: fontstyle.Bold}),
				text.NewCol(3, s.Value, props.Text{Size: 9, Align: align.Right}),
			)
		}
	}
	if doc.Footnote != "" {
		m.AddRow(8, text.NewCol(12, doc.Footnote, props.Text{Size: 8, Style: fontstyle.Italic, Top: 3}))
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(out.GetBytes()), nil
}

func headerRows(doc document) []core.Row {
	contact := strings.Join(nonEmpty(doc.Company.Email, doc.Company.Phone), "  |  ")
	return []core.Row{
		row.New(10).Add(
			text.NewCol(8, doc.Company.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
			text.NewCol(4, "Generated "+doc.GeneratedAt.Format(dateLayout), props.Text{Size: 8, Align: align.Right, Top: 2}),
		),
		row.New(5).Add(text.NewCol(12, doc.Company.Address, props.Text{Size: 8})),
		row.New(5).Add(text.NewCol(12, contact, props.Text{Size: 8})),
		row.New(10).Add(
			text.NewCol(8, doc.Title, props.Text{Size: 13, Style: fontstyle.Bold, Top: 3}),
			text.NewCol(4, doc.Period, props.Text{Size: 9, Align: align.Right, Top: 4}),
		),
		row.New(4).Add(line.NewCol(12)),
	}
}

func tableHeader(cols []column) core.Row {
	r := row.New(8)
	for _, c := range cols {
		r.Add(text.NewCol(c.Width, c.Title, props.Text{Size: 8, Style: fontstyle.Bold, Align: c.Align, Top: 2}))
	}
	return r
}

func tableRow(cols []column, values []string) core.Row {
	r := row.New(7)
	for i, c := range cols {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		r.Add(text.NewCol(c.Width, value, props.Text{Size: 8, Align: c.Align, Top: 1}))
	}
	return r
}

func formatPeriod(start, end *time.Time) string {
	switch {
	case start != nil && end != nil:
		return start.Format(dateLayout) + " - " + end.Format(dateLayout)
	case start != nil:
		return "Since " + start.Format(dateLayout)
	case end != nil:
		return "Until " + end.Format(dateLayout)
	default:
		return "All time"
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
