package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
	FormatCSV      Format = "csv"
)

// ErrCSVUnsupported is returned for CSV output of data without rows.
var ErrCSVUnsupported = errors.New("csv output is not supported for this data")

var formatAliases = map[string]Format{
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"toon":     FormatTOON,
	"csv":      FormatCSV,
}

// ParseFormat maps a name to a Format. Unknown names mean text.
func ParseFormat(s string) Format {
	if f, ok := formatAliases[strings.ToLower(s)]; ok {
		return f
	}
	return FormatText
}

// Renderable is a report with its own text and markdown layout.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData is what JSON and TOON serialize.
	RenderData() any
}

// CSVRenderable is a Renderable that can also be written as CSV rows.
type CSVRenderable interface {
	RenderCSV(w *csv.Writer) error
}

// Formatter writes reports in one Format.
type Formatter struct {
	format  Format
	writer  io.Writer
	closer  io.Closer
	colored bool
}

// NewWriterFormatter writes to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, writer: w, colored: colored}
}

// NewFormatter writes to stdout, or to the file at path when path is set.
// File output is never colored.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	f := NewWriterFormatter(format, file, false)
	f.closer = file
	return f, nil
}

// Close releases the output file, if any.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Writer returns the destination.
func (f *Formatter) Writer() io.Writer { return f.writer }

// Format returns the output format.
func (f *Formatter) Format() Format { return f.format }

// Colored reports whether text output uses color.
func (f *Formatter) Colored() bool { return f.colored }

// Output writes data in the configured format. Renderables choose their own
// text and markdown layout; anything else is serialized.
func (f *Formatter) Output(data any) error {
	r, renderable := data.(Renderable)
	if renderable {
		data = r.RenderData()
	}

	switch f.format {
	case FormatJSON:
		return f.writeJSON(data)
	case FormatTOON:
		return f.writeTOON(data)
	case FormatCSV:
		c, ok := r.(CSVRenderable)
		if !renderable || !ok {
			return ErrCSVUnsupported
		}
		return f.writeCSV(c)
	case FormatMarkdown:
		if renderable {
			return r.RenderMarkdown(f.writer)
		}
		fmt.Fprintln(f.writer, "```json")
		if err := f.writeJSON(data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.writer, "```")
		return err
	default:
		if renderable {
			return r.RenderText(f.writer, f.colored)
		}
		return f.writeJSON(data)
	}
}

func (f *Formatter) writeJSON(data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (f *Formatter) writeTOON(data any) error {
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return fmt.Errorf("toon: %w", err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", out)
	return err
}

func (f *Formatter) writeCSV(r CSVRenderable) error {
	w := csv.NewWriter(f.writer)
	if err := r.RenderCSV(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Table is a titled grid of pre-formatted cells. Data, when set, is what
// JSON and TOON serialize instead of the cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Footer  []string
	Data    any

	right map[int]bool
}

// NewTable creates a table.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
		Rows:    rows,
		Footer:  footer,
		Data:    data,
	}
}

// AlignRight right-aligns the given columns, typically numeric ones.
func (t *Table) AlignRight(cols ...int) *Table {
	if t.right == nil {
		t.right = make(map[int]bool, len(cols))
	}
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

func (t *Table) alignments() []tw.Align {
	aligns := make([]tw.Align, len(t.Headers))
	for i := range aligns {
		aligns[i] = tw.AlignLeft
		if t.right[i] {
			aligns[i] = tw.AlignRight
		}
	}
	return aligns
}

// RenderData returns Data, or the rows keyed by header.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// RenderText draws the table without borders or column separators.
func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		title := color.New(color.Bold)
		if !colored {
			title.DisableColor()
		}
		title.Fprintln(w, t.Title)
		fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len(t.Title)))
	}

	aligned := tw.CellAlignment{Global: tw.AlignLeft, PerColumn: t.alignments()}
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row:    tw.CellConfig{Alignment: aligned},
			Footer: tw.CellConfig{Alignment: aligned},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.BorderNone,
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
		}),
	)

	table.Header(t.Headers)
	if err := table.Bulk(t.Rows); err != nil {
		return err
	}
	if len(t.Footer) > 0 {
		footer := make([]any, len(t.Footer))
		for i, cell := range t.Footer {
			footer[i] = cell
		}
		table.Footer(footer...)
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

// RenderCSV writes the header row followed by the rows.
func (t *Table) RenderCSV(w *csv.Writer) error {
	if err := w.Write(t.Headers); err != nil {
		return err
	}
	return w.WriteAll(t.Rows)
}

// RenderMarkdown writes a GitHub-flavored markdown table.
func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	line := func(cells []string) {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	rule := make([]string, len(t.Headers))
	for i := range rule {
		rule[i] = "---"
		if t.right[i] {
			rule[i] = "---:"
		}
	}

	line(t.Headers)
	line(rule)
	for _, row := range t.Rows {
		line(row)
	}
	if len(t.Footer) > 0 {
		line(t.Footer)
	}
	_, err := fmt.Fprintln(w)
	return err
}

// SeverityColor colors text by LCOM severity: high is red, warning yellow
// and cohesive green.
func SeverityColor(severity, text string) string {
	switch strings.ToLower(severity) {
	case "high":
		return color.RedString(text)
	case "warning":
		return color.YellowString(text)
	case "cohesive":
		return color.GreenString(text)
	default:
		return text
	}
}
