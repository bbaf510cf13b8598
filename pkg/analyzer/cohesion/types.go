package cohesion

import (
	"slices"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/lcom/pkg/analyzer/lcom"
)

// TypeMetrics is the LCOM result for a single type.
type TypeMetrics struct {
	Path     string `json:"path"`
	TypeName string `json:"type_name"`
	Language string `json:"language"`
	Line     int    `json:"line,omitempty"`

	// Lack of Cohesion of Methods: method pairs sharing no member minus
	// pairs sharing at least one, floored at zero. 0 is cohesive.
	LCOM int `json:"lcom"`

	// Eligible methods and members the metric was computed over.
	Methods int `json:"methods"`
	Members int `json:"members"`

	// Pair breakdown: Pairs = Cohesive + NonCohesive.
	Pairs       int `json:"pairs"`
	Cohesive    int `json:"cohesive"`
	NonCohesive int `json:"non_cohesive"`

	MethodNames []string `json:"method_names,omitempty"`
	MemberNames []string `json:"member_names,omitempty"`

	// Other files declaring parts of a partial type.
	Parts []string `json:"parts,omitempty"`
}

func newTypeMetrics(path string, r *lcom.Result) TypeMetrics {
	return TypeMetrics{
		Path:        path,
		TypeName:    r.Type.Name,
		Language:    r.Type.Language,
		Line:        int(r.Type.Line),
		LCOM:        r.LCOM,
		Methods:     r.Counts.Methods,
		Members:     len(r.Members),
		Pairs:       r.Pairs,
		Cohesive:    r.Cohesive,
		NonCohesive: r.NonCohesive,
		MethodNames: r.MethodNames(),
		MemberNames: r.MemberNames(),
	}
}

// TypeError records a file or type that could not be analyzed.
// TypeName is empty when the whole file failed to read.
type TypeError struct {
	Path     string `json:"path"`
	TypeName string `json:"type_name,omitempty"`
	Message  string `json:"message"`
}

// Summary provides aggregate LCOM statistics.
type Summary struct {
	TotalTypes    int     `json:"total_types"`
	TotalFiles    int     `json:"total_files"`
	CohesiveTypes int     `json:"cohesive_types"`
	HighLCOMCount int     `json:"high_lcom_count"`
	HighThreshold int     `json:"high_threshold"`
	MeanLCOM      float64 `json:"mean_lcom"`
	StdDevLCOM    float64 `json:"stddev_lcom"`
	P90LCOM       float64 `json:"p90_lcom"`
	MaxLCOM       int     `json:"max_lcom"`
	Failed        int     `json:"failed"`
}

// Analysis is the full LCOM analysis result. Types are in discovery order
// until one of the Sort methods is called.
type Analysis struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Types       []TypeMetrics `json:"types"`
	Errors      []TypeError   `json:"errors,omitempty"`
	Summary     Summary       `json:"summary"`

	partial map[string]bool
}

func (a *Analysis) markPartial(path string) {
	if a.partial == nil {
		a.partial = make(map[string]bool)
	}
	a.partial[path] = true
}

// DeclaresPartialTypes reports whether path declared part of a partial type
// in this run. Such results depend on other files.
func (a *Analysis) DeclaresPartialTypes(path string) bool {
	return a.partial[path]
}

// CalculateSummary computes summary statistics. Types with LCOM at or above
// highThreshold count as high.
func (a *Analysis) CalculateSummary(highThreshold int) {
	a.Summary = Summary{
		HighThreshold: highThreshold,
		Failed:        len(a.Errors),
	}
	if len(a.Types) == 0 {
		return
	}

	files := make(map[string]bool)
	values := make([]float64, len(a.Types))
	for i, t := range a.Types {
		files[t.Path] = true
		values[i] = float64(t.LCOM)

		if t.LCOM == 0 {
			a.Summary.CohesiveTypes++
		}
		if highThreshold > 0 && t.LCOM >= highThreshold {
			a.Summary.HighLCOMCount++
		}
		if t.LCOM > a.Summary.MaxLCOM {
			a.Summary.MaxLCOM = t.LCOM
		}
	}

	a.Summary.TotalTypes = len(a.Types)
	a.Summary.TotalFiles = len(files)
	a.Summary.MeanLCOM, a.Summary.StdDevLCOM = stat.PopMeanStdDev(values, nil)

	sort.Float64s(values)
	a.Summary.P90LCOM = stat.Quantile(0.9, stat.Empirical, values, nil)
}

// SortByLCOM sorts types by LCOM in descending order (least cohesive first).
// Ties keep discovery order.
func (a *Analysis) SortByLCOM() {
	sort.SliceStable(a.Types, func(i, j int) bool {
		return a.Types[i].LCOM > a.Types[j].LCOM
	})
}

// SortByName sorts types by name, then path.
func (a *Analysis) SortByName() {
	sort.SliceStable(a.Types, func(i, j int) bool {
		if a.Types[i].TypeName != a.Types[j].TypeName {
			return a.Types[i].TypeName < a.Types[j].TypeName
		}
		return a.Types[i].Path < a.Types[j].Path
	})
}

// SortByMethods sorts types by eligible method count in descending order.
func (a *Analysis) SortByMethods() {
	sort.SliceStable(a.Types, func(i, j int) bool {
		return a.Types[i].Methods > a.Types[j].Methods
	})
}

// Sort applies the named ordering: "lcom", "name", "methods", or "" /
// "discovery" to leave the order untouched. It reports whether by was known.
func (a *Analysis) Sort(by string) bool {
	switch strings.ToLower(by) {
	case "", "discovery":
	case "lcom":
		a.SortByLCOM()
	case "name":
		a.SortByName()
	case "methods":
		a.SortByMethods()
	default:
		return false
	}
	return true
}

// Top truncates Types to the first n entries. n <= 0 keeps everything.
func (a *Analysis) Top(n int) {
	if n > 0 && n < len(a.Types) {
		a.Types = slices.Clip(a.Types[:n])
	}
}

// Find returns the metrics for the named type, matching the full name first
// and then the unqualified name.
func (a *Analysis) Find(name string) (TypeMetrics, bool) {
	for _, t := range a.Types {
		if t.TypeName == name {
			return t, true
		}
	}
	for _, t := range a.Types {
		if shortName(t.TypeName) == name {
			return t, true
		}
	}
	return TypeMetrics{}, false
}

func shortName(name string) string {
	if i := strings.LastIndexAny(name, "./$"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// MemberUsage is one data member in an explanation.
type MemberUsage struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
}

// MethodUsage is one selected method and the members it touches.
type MethodUsage struct {
	Name          string   `json:"name"`
	DeclaringType string   `json:"declaring_type"`
	Vector        string   `json:"vector"`
	Uses          []string `json:"uses,omitempty"`
}

// Explanation is the usage matrix behind a single type's LCOM value.
type Explanation struct {
	Path             string        `json:"path"`
	TypeName         string        `json:"type_name"`
	Language         string        `json:"language,omitempty"`
	InheritedMethods string        `json:"inherited_methods"`
	BackingFields    string        `json:"backing_fields"`
	Members          []MemberUsage `json:"members"`
	Methods          []MethodUsage `json:"methods"`
	Counts           lcom.Counts   `json:"counts"`
}

// NewExplanation flattens r into a serializable explanation.
func NewExplanation(path string, r *lcom.Result, calc *lcom.Calculator) *Explanation {
	e := &Explanation{
		Path:             path,
		TypeName:         r.Type.Name,
		Language:         r.Type.Language,
		InheritedMethods: calc.InheritancePolicy().String(),
		BackingFields:    calc.BackingFieldPolicy().String(),
		Members:          make([]MemberUsage, len(r.Members)),
		Methods:          make([]MethodUsage, len(r.Methods)),
		Counts:           r.Counts,
	}
	for i, m := range r.Members {
		e.Members[i] = MemberUsage{Index: i, Name: m.Name(), Kind: m.Kind().String()}
	}
	for i, m := range r.Methods {
		mu := MethodUsage{Name: m.Name, Vector: r.Usage[i].String()}
		if m.DeclaringType != nil {
			mu.DeclaringType = m.DeclaringType.Name
		}
		for _, idx := range r.Usage[i].Members() {
			mu.Uses = append(mu.Uses, r.Members[idx].Name())
		}
		e.Methods[i] = mu
	}
	return e
}
