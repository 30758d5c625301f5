package placeholder

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dgallion1/mtlgen/internal/definition"
)

// Syntax is one placeholder convention. Pattern must capture the field key
// in its first group.
type Syntax struct {
	Name    string
	Pattern *regexp.Regexp
	// Skip, if set, rejects a match given the full text and the match end offset.
	Skip func(text string, end int) bool
}

// Built-in syntax names.
const (
	BracketHash      = "bracket-hash"
	DoubleBraceSnake = "double-brace-snake"
	DoubleBraceLower = "double-brace-lower"
	SingleBracket    = "single-bracket"
)

// Match is one placeholder occurrence found in a text surface.
type Match struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Token  string `json:"token"`
	Key    string `json:"key"`
	Syntax string `json:"syntax"`
}

// Unresolved is a placeholder left verbatim because no field matched its key.
type Unresolved struct {
	Token  string `json:"token"`
	Syntax string `json:"syntax"`
	Key    string `json:"key"`
}

// Result is resolved text plus every distinct placeholder that was not resolved.
type Result struct {
	Text       string       `json:"text"`
	Unresolved []Unresolved `json:"unresolved"`
}

// Registry holds the recognized syntaxes in evaluation order.
type Registry struct {
	syntaxes []Syntax
}

// NewRegistry builds a registry from the given syntaxes.
func NewRegistry(syntaxes ...Syntax) *Registry {
	return &Registry{syntaxes: append([]Syntax{}, syntaxes...)}
}

// Register adds a convention. Names must be unique.
func (r *Registry) Register(s Syntax) error {
	if s.Pattern == nil || s.Pattern.NumSubexp() < 1 {
		return fmt.Errorf("syntax %q: pattern must capture the key", s.Name)
	}
	for _, existing := range r.syntaxes {
		if existing.Name == s.Name {
			return fmt.Errorf("syntax %q already registered", s.Name)
		}
	}
	r.syntaxes = append(r.syntaxes, s)
	return nil
}

// Syntaxes returns the registered syntax names in order.
func (r *Registry) Syntaxes() []string {
	names := make([]string, len(r.syntaxes))
	for i, s := range r.syntaxes {
		names[i] = s.Name
	}
	return names
}

var defaultRegistry = NewRegistry(
	Syntax{Name: BracketHash, Pattern: regexp.MustCompile(`\{([A-Z][A-Z0-9_#]*)\}`)},
	// Upper-snake keys in double braces ({{MTL_NUMBER}}) are legacy templates.
	Syntax{Name: DoubleBraceSnake, Pattern: regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9]*(?:_[A-Za-z0-9#]+)+|[A-Z][A-Z0-9_#]*)\s*\}\}`)},
	Syntax{Name: DoubleBraceLower, Pattern: regexp.MustCompile(`\{\{\s*([a-z][a-zA-Z0-9]*)\s*\}\}`)},
	Syntax{
		Name:    SingleBracket,
		Pattern: regexp.MustCompile(`\[([A-Za-z][A-Za-z0-9_#]*)\]`),
		// [text](url) is a markup link, not a placeholder.
		Skip: func(text string, end int) bool { return end < len(text) && text[end] == '(' },
	},
)

// Default returns the registry with the four built-in conventions.
func Default() *Registry {
	return NewRegistry(defaultRegistry.syntaxes...)
}

// Scan returns the non-overlapping placeholder occurrences in text, ordered by
// position. When two syntaxes overlap the earlier, then longer, match wins.
func (r *Registry) Scan(text string) []Match {
	var all []Match
	for _, s := range r.syntaxes {
		for _, loc := range s.Pattern.FindAllStringSubmatchIndex(text, -1) {
			if s.Skip != nil && s.Skip(text, loc[1]) {
				continue
			}
			all = append(all, Match{
				Start:  loc[0],
				End:    loc[1],
				Token:  text[loc[0]:loc[1]],
				Key:    text[loc[2]:loc[3]],
				Syntax: s.Name,
			})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End-all[i].Start > all[j].End-all[j].Start
	})

	out := all[:0]
	end := -1
	for _, m := range all {
		if m.Start < end {
			continue
		}
		out = append(out, m)
		end = m.End
	}
	return out
}

// Resolve replaces every recognized placeholder with its field value. Extra
// values (computed fields such as the document type) are looked up after the
// definition's own fields. Unresolved tokens stay verbatim.
func (r *Registry) Resolve(text string, def *definition.TaskDefinition, extra map[string]string) Result {
	matches := r.Scan(text)
	res := Result{Text: text, Unresolved: []Unresolved{}}
	if len(matches) == 0 {
		return res
	}

	var extras map[string]string
	if len(extra) > 0 {
		extras = make(map[string]string, len(extra))
		for k, v := range extra {
			extras[NormalizeKey(k)] = v
		}
	}

	var b strings.Builder
	seen := map[string]bool{}
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		last = m.End
		if v, ok := lookup(NormalizeKey(m.Key), def, extras); ok {
			b.WriteString(v)
			continue
		}
		b.WriteString(m.Token)
		if !seen[m.Token] {
			seen[m.Token] = true
			res.Unresolved = append(res.Unresolved, Unresolved{Token: m.Token, Syntax: m.Syntax, Key: m.Key})
		}
	}
	b.WriteString(text[last:])
	res.Text = b.String()
	return res
}

// Resolve uses the default registry with no extra values.
func Resolve(text string, def *definition.TaskDefinition) Result {
	return defaultRegistry.Resolve(text, def, nil)
}

// NormalizeKey folds a key from any convention onto one lookup form:
// lower case, '#' read as "number", separators removed.
func NormalizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r == '#':
			b.WriteString("number")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Computed keys.
const (
	KeyStepCount    = "stepcount"
	KeyDocumentType = "documenttype"
)

// fieldKeys maps normalized keys onto canonical fields.
var fieldKeys = func() map[string]string {
	m := map[string]string{}
	for _, f := range append(append([]string{}, definition.ScalarFields...), definition.SequenceFields...) {
		k := NormalizeKey(f)
		m[k] = f
		m["mtl"+k] = f
	}
	for k, f := range map[string]string{
		"rev":                definition.FieldRevision,
		"versionnumber":      definition.FieldVersion,
		"revisionnumber":     definition.FieldRevision,
		"author":             definition.FieldCreatedBy,
		"date":               definition.FieldCreatedDate,
		"prereq":             definition.FieldPrerequisites,
		"prereqs":            definition.FieldPrerequisites,
		"reqequip":           definition.FieldEquipmentList,
		"equipment":          definition.FieldEquipmentList,
		"compcrit":           definition.FieldCompletionCriteria,
		"toolsrequired":      definition.FieldRequiredTools,
		"estimatedtimemins":  definition.FieldEstimatedTime,
		"number":             definition.FieldNumber,
		"mtlnum":             definition.FieldNumber,
		"relatedprocs":       definition.FieldRelatedProcedures,
		"safety":             definition.FieldSafetyNotes,
		"models":             definition.FieldEquipmentModels,
	} {
		m[k] = f
	}
	return m
}()

// SequenceSeparator joins sequence values placed into a single text surface.
const SequenceSeparator = "; "

func lookup(key string, def *definition.TaskDefinition, extras map[string]string) (string, bool) {
	if def != nil {
		if field, ok := fieldKeys[key]; ok {
			if v, ok := def.Scalar(field); ok {
				return v, true
			}
			if seq, ok := def.Sequence(field); ok {
				return strings.Join(seq, SequenceSeparator), true
			}
		}
		if key == KeyStepCount || key == "mtlstepcount" {
			return strconv.Itoa(len(def.Steps)), true
		}
	}
	if v, ok := extras[key]; ok {
		return v, true
	}
	return "", false
}
