package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/lcom/pkg/analyzer/cohesion"
)

// Severity classifies an LCOM value against the configured thresholds.
func Severity(lcom, warning, high int) string {
	switch {
	case high > 0 && lcom >= high:
		return "high"
	case lcom > 0 && lcom >= warning:
		return "warning"
	case lcom == 0:
		return "cohesive"
	default:
		return ""
	}
}

// LCOMReport renders a cohesion analysis.
type LCOMReport struct {
	Analysis *cohesion.Analysis
	Warning  int
	High     int
}

// NewLCOMReport wraps an analysis with its severity thresholds.
func NewLCOMReport(a *cohesion.Analysis, warning, high int) *LCOMReport {
	return &LCOMReport{Analysis: a, Warning: warning, High: high}
}

func (r *LCOMReport) RenderData() any {
	return r.Analysis
}

func (r *LCOMReport) table(colored bool) *Table {
	rows := make([][]string, 0, len(r.Analysis.Types))
	for _, t := range r.Analysis.Types {
		value := strconv.Itoa(t.LCOM)
		if colored {
			value = SeverityColor(Severity(t.LCOM, r.Warning, r.High), value)
		}
		rows = append(rows, []string{
			t.TypeName,
			t.Path,
			value,
			strconv.Itoa(t.Methods),
			strconv.Itoa(t.Members),
			fmt.Sprintf("%d/%d", t.Cohesive, t.Pairs),
		})
	}

	s := r.Analysis.Summary
	return NewTable(
		"Lack of Cohesion of Methods",
		[]string{"Type", "Path", "LCOM", "Methods", "Members", "Cohesive Pairs"},
		rows,
		[]string{
			fmt.Sprintf("Types: %d", s.TotalTypes),
			fmt.Sprintf("Files: %d", s.TotalFiles),
			fmt.Sprintf("Mean: %.2f", s.MeanLCOM),
			fmt.Sprintf("P90: %.0f", s.P90LCOM),
			fmt.Sprintf("Max: %d", s.MaxLCOM),
			fmt.Sprintf("High (>=%d): %d", s.HighThreshold, s.HighLCOMCount),
		},
		r.Analysis,
	).AlignRight(2, 3, 4)
}

func (r *LCOMReport) RenderText(w io.Writer, colored bool) error {
	if len(r.Analysis.Types) == 0 {
		fmt.Fprintln(w, "No types analyzed.")
	} else if err := r.table(colored).RenderText(w, colored); err != nil {
		return err
	}
	r.renderErrors(w, colored)
	return nil
}

func (r *LCOMReport) RenderMarkdown(w io.Writer) error {
	if err := r.table(false).RenderMarkdown(w); err != nil {
		return err
	}
	if len(r.Analysis.Errors) > 0 {
		fmt.Fprintf(w, "### Errors (%d)\n\n", len(r.Analysis.Errors))
		for _, e := range r.Analysis.Errors {
			fmt.Fprintf(w, "- `%s`: %s\n", errorSubject(e), e.Message)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// RenderCSV writes TypeName,LCOM rows in the analysis order.
func (r *LCOMReport) RenderCSV(w *csv.Writer) error {
	if err := w.Write([]string{"TypeName", "LCOM"}); err != nil {
		return err
	}
	for _, t := range r.Analysis.Types {
		if err := w.Write([]string{t.TypeName, strconv.Itoa(t.LCOM)}); err != nil {
			return err
		}
	}
	return nil
}

func (r *LCOMReport) renderErrors(w io.Writer, colored bool) {
	if len(r.Analysis.Errors) == 0 {
		return
	}
	header := fmt.Sprintf("%d file(s) or type(s) could not be analyzed:", len(r.Analysis.Errors))
	if colored {
		color.New(color.FgYellow).Fprintln(w, header)
	} else {
		fmt.Fprintln(w, header)
	}
	for _, e := range r.Analysis.Errors {
		fmt.Fprintf(w, "  %s: %s\n", errorSubject(e), e.Message)
	}
}

func errorSubject(e cohesion.TypeError) string {
	if e.TypeName == "" {
		return e.Path
	}
	return e.Path + " " + e.TypeName
}

// ExplainReport renders the usage matrix of one type.
type ExplainReport struct {
	Explanation *cohesion.Explanation
}

// NewExplainReport wraps an explanation.
func NewExplainReport(e *cohesion.Explanation) *ExplainReport {
	return &ExplainReport{Explanation: e}
}

func (r *ExplainReport) RenderData() any {
	return r.Explanation
}

func (r *ExplainReport) members() []string {
	out := make([]string, len(r.Explanation.Members))
	for i, m := range r.Explanation.Members {
		out[i] = fmt.Sprintf("%d. %s (%s)", i, m.Name, m.Kind)
	}
	return out
}

// usage is the method by member matrix with right-aligned member columns.
func (r *ExplainReport) usage() *Table {
	headers, rows := r.matrix()
	cols := make([]int, 0, len(headers))
	for i := 1; i < len(headers); i++ {
		cols = append(cols, i)
	}
	return NewTable("Usage", headers, rows, nil, nil).AlignRight(cols...)
}

func (r *ExplainReport) matrix() ([]string, [][]string) {
	e := r.Explanation
	headers := make([]string, 0, len(e.Members)+1)
	headers = append(headers, "Method")
	for i := range e.Members {
		headers = append(headers, strconv.Itoa(i))
	}

	rows := make([][]string, len(e.Methods))
	for i, m := range e.Methods {
		name := m.Name
		if m.DeclaringType != "" && m.DeclaringType != e.TypeName {
			name = m.DeclaringType + "::" + m.Name
		}
		row := make([]string, 0, len(headers))
		row = append(row, name)
		for _, bit := range m.Vector {
			if bit == '1' {
				row = append(row, "x")
			} else {
				row = append(row, ".")
			}
		}
		rows[i] = row
	}
	return headers, rows
}

func (r *ExplainReport) summary() string {
	c := r.Explanation.Counts
	return fmt.Sprintf("methods=%d pairs=%d cohesive(Q)=%d non-cohesive(P)=%d LCOM=max(P-Q,0)=%d",
		c.Methods, c.Pairs, c.Cohesive, c.NonCohesive, c.LCOM)
}

func (r *ExplainReport) RenderText(w io.Writer, colored bool) error {
	e := r.Explanation
	title := fmt.Sprintf("%s (%s)", e.TypeName, e.Path)
	if colored {
		color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintf(w, "inherited methods: %s, backing fields: %s\n\n", e.InheritedMethods, e.BackingFields)

	fmt.Fprintln(w, "Members")
	if len(e.Members) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, m := range r.members() {
		fmt.Fprintln(w, "  "+m)
	}
	fmt.Fprintln(w)

	if len(e.Methods) > 0 {
		if err := r.usage().RenderText(w, colored); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, "No eligible methods.")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, r.summary())
	return nil
}

func (r *ExplainReport) RenderMarkdown(w io.Writer) error {
	e := r.Explanation
	fmt.Fprintf(w, "## %s\n\n", e.TypeName)
	fmt.Fprintf(w, "`%s` (inherited methods: %s, backing fields: %s)\n\n", e.Path, e.InheritedMethods, e.BackingFields)

	fmt.Fprintln(w, "### Members")
	fmt.Fprintln(w)
	for _, m := range r.members() {
		fmt.Fprintln(w, "- "+m)
	}
	fmt.Fprintln(w)

	if len(e.Methods) > 0 {
		if err := r.usage().RenderMarkdown(w); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "`%s`\n", r.summary())
	return nil
}

// RenderCSV writes the usage matrix with member names as columns.
func (r *ExplainReport) RenderCSV(w *csv.Writer) error {
	e := r.Explanation
	header := make([]string, 0, len(e.Members)+1)
	header = append(header, "Method")
	for _, m := range e.Members {
		header = append(header, m.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, m := range e.Methods {
		row := make([]string, 0, len(header))
		row = append(row, m.Name)
		for _, bit := range m.Vector {
			row = append(row, string(bit))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}
