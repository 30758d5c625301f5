package classify

import (
	"regexp"
	"strings"
	"unicode"
)

// Role is the structural role assigned to a table row.
type Role string

const (
	Header        Role = "header"
	StepsHeader   Role = "stepsHeader"
	TrailerHeader Role = "trailerHeader"
	Unclassified  Role = ""
)

// Table is the rendered text of one tabular region: Rows[i][j] is the text
// of cell j in row i.
type Table struct {
	Index int
	Rows  [][]string
}

// Row is one classified row.
type Row struct {
	Table int    `json:"table"`
	Index int    `json:"row"`
	Text  string `json:"text"`
	Cells int    `json:"cells"`
	Role  Role   `json:"role"`
}

// Rule assigns Role to the first row whose text satisfies Match.
type Rule struct {
	Role  Role
	Match func(text string) bool
	// OncePerTable stops the rule after its first match in a table.
	OncePerTable bool
	// FirstRowOnly restricts the rule to the table's first non-blank row.
	FirstRowOnly bool
}

// HeaderMarker identifies the document header row. Spacing and case are ignored.
const HeaderMarker = "MASTER TASK LIST"

// StepsMarkers are the column captions that together identify a step table.
var StepsMarkers = []string{"#", "STEP", "INITIALS"}

// TrailerMarkers lists the caption word sets of recognized trailer tables.
// A row matches when it contains every word of any one set.
var TrailerMarkers = [][]string{
	{"ISSUE", "SOLUTION"},
	{"PROBLEM", "RESOLUTION"},
	{"SIGNATURE", "DATE"},
	{"TRAINER", "NOTES"},
	{"TOOLS", "EQUIPMENT"},
	{"REQUIRED", "TOOLS"},
	{"COMPLETION", "CRITERIA"},
	{"PRE", "REQS"},
	{"SAFETY", "NOTES"},
	{"EQUIPMENT", "MODELS"},
	{"RELATED", "PROCEDURES"},
}

// DefaultRules is evaluated in order for every row; the first matching rule wins.
var DefaultRules = []Rule{
	{Role: Header, Match: IsHeader, OncePerTable: true},
	{Role: StepsHeader, Match: IsStepsHeader},
	{Role: TrailerHeader, Match: IsTrailerHeader, FirstRowOnly: true},
}

var wordRE = regexp.MustCompile(`[A-Z0-9#]+`)

func words(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range wordRE.FindAllString(strings.ToUpper(text), -1) {
		out[w] = true
		// "#" is often glued to a neighbor, e.g. "#1" or "STEP#".
		if strings.Contains(w, "#") {
			out["#"] = true
			if t := strings.Trim(w, "#"); t != "" {
				out[t] = true
			}
		}
	}
	return out
}

// IsHeader reports whether text carries the header marker phrase.
func IsHeader(text string) bool {
	squash := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, strings.ToUpper(s))
	}
	return strings.Contains(squash(text), squash(HeaderMarker))
}

// IsStepsHeader reports whether text carries every step column marker.
func IsStepsHeader(text string) bool {
	w := words(text)
	for _, m := range StepsMarkers {
		if m == "STEP" {
			if !w["STEP"] && !w["STEPS"] {
				return false
			}
			continue
		}
		if !w[m] {
			return false
		}
	}
	return true
}

// IsTrailerHeader reports whether text matches any trailer marker set.
func IsTrailerHeader(text string) bool {
	w := words(text)
	for _, set := range TrailerMarkers {
		all := true
		for _, m := range set {
			if !w[m] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Classify applies DefaultRules. Only rows that received a role are returned;
// a document with no marker rows yields an empty, non-nil slice.
func Classify(tables []Table) []Row {
	return ClassifyWith(tables, DefaultRules)
}

// ClassifyWith applies rules to every row of every table.
func ClassifyWith(tables []Table, rules []Rule) []Row {
	out := []Row{}
	for _, t := range tables {
		taken := map[Role]bool{}
		first := true
		for i, cells := range t.Rows {
			text := strings.TrimSpace(strings.Join(cells, " "))
			if text == "" {
				continue
			}
			isFirst := first
			first = false
			for _, rule := range rules {
				if rule.FirstRowOnly && !isFirst {
					continue
				}
				if rule.OncePerTable && taken[rule.Role] {
					continue
				}
				if rule.Match(text) {
					taken[rule.Role] = true
					out = append(out, Row{Table: t.Index, Index: i, Text: text, Cells: len(cells), Role: rule.Role})
					break
				}
			}
		}
	}
	return out
}

// ByRole returns the classified rows with the given role.
func ByRole(rows []Row, role Role) []Row {
	var out []Row
	for _, r := range rows {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}
