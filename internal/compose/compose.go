package compose

import (
	"slices"
	"strings"

	"github.com/dgallion1/mtlgen/internal/definition"
)

// Kind identifies a block's layout.
type Kind string

const (
	KindHeader    Kind = "header"
	KindStepTable Kind = "stepTable"
	KindList      Kind = "list"
	KindChecklist Kind = "checklist"
	KindPairTable Kind = "pairTable"
	KindPageBreak Kind = "pageBreak"
	KindNotes     Kind = "notes"
	KindSignOff   Kind = "signOff"
)

// Field is one labelled header value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Block is one composed document section. Only the members relevant to its
// Kind are set.
type Block struct {
	Kind Kind `json:"kind"`
	// Source is the definition field a list-like block was built from.
	Source string `json:"source,omitempty"`
	Title  string `json:"title,omitempty"`

	Caption string  `json:"caption,omitempty"`
	Label   string  `json:"label,omitempty"`
	Fields  []Field `json:"fields,omitempty"`

	Columns []string    `json:"columns,omitempty"`
	Note    string      `json:"note,omitempty"`
	Items   []string    `json:"items,omitempty"`
	Pairs   [][2]string `json:"pairs,omitempty"`

	Lines     int      `json:"lines,omitempty"`
	Signers   []string `json:"signers,omitempty"`
	Statement string   `json:"statement,omitempty"`
}

// Header captions.
const (
	CaptionStandard  = "MASTER TASK LIST"
	CaptionTeachback = "MASTER TASKLIST: TEACHBACK"
)

// Section titles.
const (
	TitleSteps              = "STEPS"
	TitleToolsEquipment     = "TOOLS / EQUIPMENT"
	TitleCompletionCriteria = "COMPLETION CRITERIA"
	TitlePrerequisites      = "PRE REQS"
	TitleSafetyNotes        = "SAFETY NOTES"
	TitleRequiredTools      = "REQUIRED TOOLS"
	TitleEquipmentModels    = "EQUIPMENT MODELS"
	TitleTroubleshooting    = "TROUBLESHOOTING"
	TitleRelatedProcedures  = "RELATED PROCEDURES"
	TitleTrainerNotes       = "TRAINER NOTES:"
	TitleSignOff            = "SIGN-OFF"
)

// CheckboxMark prefixes every completion criterion.
const CheckboxMark = "☐"

// QuickReferenceNote sits under the STEP column of the quick-reference table.
const QuickReferenceNote = "(Provide limited detail for each step without being too wordy. " +
	"This is a checklist for a trained, experienced employee. " +
	"For more detail, see the MTL2 for this task.)"

// CertificationStatement closes every sign-off block.
const CertificationStatement = "By signing above, the trainer certifies that the trainee has demonstrated " +
	"competency in performing this task according to company standards. " +
	"The trainee acknowledges understanding and ability to perform this task safely."

// NoteLines is the number of blank lines in a trainer-notes block.
const NoteLines = 4

var (
	stepColumns = map[definition.DocumentType][]string{
		definition.QuickReference:      {"#", "STEP", "TECH. INITIALS"},
		definition.DetailedWalkthrough: {"#", "STEP", "START DATE", "STOP DATE", "TRAINEE INITIALS", "TRAINER INITIALS"},
		definition.Teachback:           {"#", "STEP", "TRAINEE INITIALS", "TRAINER INITIALS"},
	}
	signOffColumns = []string{"ROLE", "SIGNATURE", "PRINTED NAME", "DATE"}
	signers        = []string{"TRAINER", "TRAINEE"}
	pairColumns    = []string{"ISSUE", "SOLUTION"}
)

// sectionTitles maps list-like fields onto their captions.
var sectionTitles = map[string]string{
	definition.FieldSteps:              TitleSteps,
	definition.FieldEquipmentList:      TitleToolsEquipment,
	definition.FieldCompletionCriteria: TitleCompletionCriteria,
	definition.FieldPrerequisites:      TitlePrerequisites,
	definition.FieldSafetyNotes:        TitleSafetyNotes,
	definition.FieldRequiredTools:      TitleRequiredTools,
	definition.FieldEquipmentModels:    TitleEquipmentModels,
	definition.FieldRelatedProcedures:  TitleRelatedProcedures,
	definition.FieldTroubleshooting:    TitleTroubleshooting,
}

// SectionTitle returns the caption used for a field's block.
func SectionTitle(field string) (string, bool) {
	t, ok := sectionTitles[field]
	return t, ok
}

// FieldForTitle maps a section caption back onto its field. Case, trailing
// colons and surrounding space are ignored.
func FieldForTitle(title string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(strings.TrimRight(strings.TrimSpace(title), ":")))
	for field, caption := range sectionTitles {
		if caption == t {
			return field, true
		}
	}
	return "", false
}

// StepColumns returns the step-table captions for a document type.
func StepColumns(dt definition.DocumentType) []string {
	return slices.Clone(stepColumns[dt])
}

// Caption returns the header caption for a document type.
func Caption(dt definition.DocumentType) string {
	if dt == definition.Teachback {
		return CaptionTeachback
	}
	return CaptionStandard
}

// Compose lays out the ordered sections of one document. It reads def and
// returns freshly allocated blocks; nothing is shared with def.
func Compose(dt definition.DocumentType, def *definition.TaskDefinition) []Block {
	blocks := []Block{headerBlock(dt, def), stepBlock(dt, def)}

	switch dt {
	case definition.DetailedWalkthrough:
		blocks = append(blocks,
			listBlock(KindList, def, definition.FieldEquipmentList),
			listBlock(KindChecklist, def, definition.FieldCompletionCriteria),
		)
		for _, field := range []string{
			definition.FieldPrerequisites,
			definition.FieldSafetyNotes,
			definition.FieldRequiredTools,
			definition.FieldEquipmentModels,
		} {
			if b := listBlock(KindList, def, field); len(b.Items) > 0 {
				blocks = append(blocks, b)
			}
		}
		if len(def.Troubleshooting) > 0 {
			blocks = append(blocks, troubleshootingBlock(def))
		}
		if b := listBlock(KindList, def, definition.FieldRelatedProcedures); len(b.Items) > 0 {
			blocks = append(blocks, b)
		}
		blocks = append(blocks, trailer()...)
	case definition.Teachback:
		blocks = append(blocks, trailer()...)
	}
	return blocks
}

func headerBlock(dt definition.DocumentType, def *definition.TaskDefinition) Block {
	fields := []Field{
		{"TITLE", def.Title},
		{"MTL NUMBER", def.Number},
		{"VERSION", def.Version},
		{"REVISION", def.Revision},
		{"CREATED BY", def.CreatedBy},
	}
	for _, f := range []Field{
		{"CREATED DATE", def.CreatedDate},
		{"CATEGORY", def.Category},
		{"ESTIMATED TIME", def.EstimatedTime},
	} {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return Block{
		Kind:    KindHeader,
		Caption: Caption(dt),
		Label:   dt.Label(),
		Title:   def.Title,
		Fields:  fields,
	}
}

func stepBlock(dt definition.DocumentType, def *definition.TaskDefinition) Block {
	b := Block{
		Kind:    KindStepTable,
		Source:  definition.FieldSteps,
		Title:   TitleSteps,
		Columns: StepColumns(dt),
		Items:   slices.Clone(def.Steps),
	}
	if dt == definition.QuickReference {
		b.Note = QuickReferenceNote
	}
	return b
}

func listBlock(kind Kind, def *definition.TaskDefinition, field string) Block {
	items, _ := def.Sequence(field)
	return Block{Kind: kind, Source: field, Title: sectionTitles[field], Items: items}
}

func troubleshootingBlock(def *definition.TaskDefinition) Block {
	pairs := make([][2]string, len(def.Troubleshooting))
	for i, t := range def.Troubleshooting {
		pairs[i] = [2]string{t.Problem, t.Resolution}
	}
	return Block{
		Kind:    KindPairTable,
		Source:  definition.FieldTroubleshooting,
		Title:   TitleTroubleshooting,
		Columns: slices.Clone(pairColumns),
		Pairs:   pairs,
	}
}

// trailer is the second page shared by walkthrough and teachback documents.
func trailer() []Block {
	return []Block{
		{Kind: KindPageBreak},
		{Kind: KindNotes, Title: TitleTrainerNotes, Lines: NoteLines},
		{
			Kind:      KindSignOff,
			Title:     TitleSignOff,
			Columns:   slices.Clone(signOffColumns),
			Signers:   slices.Clone(signers),
			Statement: CertificationStatement,
		},
	}
}

// Clone deep-copies blocks so each export path owns its sections.
func Clone(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		b.Fields = slices.Clone(b.Fields)
		b.Columns = slices.Clone(b.Columns)
		b.Items = slices.Clone(b.Items)
		b.Pairs = slices.Clone(b.Pairs)
		b.Signers = slices.Clone(b.Signers)
		out[i] = b
	}
	return out
}

// Count returns how many blocks have the given kind.
func Count(blocks []Block, kind Kind) int {
	n := 0
	for _, b := range blocks {
		if b.Kind == kind {
			n++
		}
	}
	return n
}
