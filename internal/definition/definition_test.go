package definition

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func validRaw() map[string]any {
	return map[string]any{
		"title":     "Printer Reset",
		"number":    "MTL-0042",
		"version":   "3",
		"revision":  "B",
		"createdBy": "J. Ortiz",
		"steps":     []any{"Power off the printer.", "Hold reset for 10 seconds.", "Power on."},
	}
}

func TestLoad_ValidDefinition(t *testing.T) {
	def, report := Load(validRaw())
	if !report.Valid() {
		t.Fatalf("expected valid report, got %+v", report.Violations)
	}
	if def == nil {
		t.Fatal("expected definition, got nil")
	}
	if def.Title != "Printer Reset" {
		t.Errorf("expected title %q, got %q", "Printer Reset", def.Title)
	}
	if len(def.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(def.Steps))
	}
	if def.Prerequisites == nil || len(def.Prerequisites) != 0 {
		t.Errorf("expected empty non-nil prerequisites, got %#v", def.Prerequisites)
	}
	if def.Troubleshooting == nil || len(def.Troubleshooting) != 0 {
		t.Errorf("expected empty troubleshooting, got %#v", def.Troubleshooting)
	}
	if report.Err() != nil {
		t.Errorf("expected nil error, got %v", report.Err())
	}
}

func TestValidate_StepsViolations(t *testing.T) {
	tests := []struct {
		name  string
		steps any
		omit  bool
		rule  string
	}{
		{name: "missing", omit: true, rule: "required"},
		{name: "null", steps: nil, rule: "required"},
		{name: "empty list", steps: []any{}, rule: "nonEmpty"},
		{name: "only blanks", steps: []any{nil, "  "}, rule: "nonEmpty"},
		{name: "mapping", steps: map[string]any{"1": "x"}, rule: "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			if tt.omit {
				delete(raw, "steps")
			} else {
				raw["steps"] = tt.steps
			}
			report := Validate(raw)
			if len(report.Violations) != 1 {
				t.Fatalf("expected exactly 1 violation, got %d: %+v", len(report.Violations), report.Violations)
			}
			v := report.Violations[0]
			if v.Field != FieldSteps {
				t.Errorf("expected violation on %q, got %q", FieldSteps, v.Field)
			}
			if v.Rule != tt.rule {
				t.Errorf("expected rule %q, got %q", tt.rule, v.Rule)
			}
		})
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	report := Validate(map[string]any{})
	if len(report.Violations) != len(RequiredFields) {
		t.Fatalf("expected %d violations, got %d: %+v", len(RequiredFields), len(report.Violations), report.Violations)
	}
	for i, field := range RequiredFields {
		if report.Violations[i].Field != field {
			t.Errorf("violation %d: expected field %q, got %q", i, field, report.Violations[i].Field)
		}
	}

	var verr *ValidationError
	if !errors.As(report.Err(), &verr) {
		t.Fatalf("expected *ValidationError, got %T", report.Err())
	}
	if !strings.Contains(verr.Error(), "6 violations") {
		t.Errorf("expected error to count violations, got %q", verr.Error())
	}
}

func TestValidate_RequiredScalarShapes(t *testing.T) {
	raw := validRaw()
	raw["title"] = "   "
	raw["version"] = []any{"1", "2"}
	report := Validate(raw)
	if len(report.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", report.Violations)
	}
	if report.Violations[0].Field != FieldTitle || report.Violations[0].Rule != "required" {
		t.Errorf("unexpected first violation %+v", report.Violations[0])
	}
	if report.Violations[1].Field != FieldVersion || report.Violations[1].Rule != "type" {
		t.Errorf("unexpected second violation %+v", report.Violations[1])
	}
}

func TestLoad_LegacyCompactNumberAlias(t *testing.T) {
	raw := validRaw()
	delete(raw, "number")
	raw["MTL_#"] = 42

	def, report := Load(raw)
	if !report.Valid() {
		t.Fatalf("expected legacy definition to validate, got %+v", report.Violations)
	}
	if def.Number != "42" {
		t.Errorf("expected number %q from alias, got %q", "42", def.Number)
	}
	if len(report.Rewrites) != 1 || report.Rewrites[0].From != "MTL_#" || report.Rewrites[0].To != FieldNumber {
		t.Errorf("expected one MTL_# rewrite, got %+v", report.Rewrites)
	}
}

func TestLoad_LegacyUpperSnakeDefinition(t *testing.T) {
	raw := map[string]any{
		"MTL_TITLE":       "Toner Swap",
		"MTL_NUMBER":      "7",
		"VERSION_NUMBER":  1,
		"REVISION_NUMBER": "A",
		"CREATED_BY":      "ops",
		"STEPS":           []any{"Open door", "Swap cartridge"},
		"PRE_REQS":        "Gloves on",
		"EQUIPMENT_LIST":  []any{"Cartridge"},
	}
	def, report := Load(raw)
	if !report.Valid() {
		t.Fatalf("expected valid, got %+v", report.Violations)
	}
	if def.Title != "Toner Swap" || def.Version != "1" || def.Revision != "A" {
		t.Errorf("unexpected scalars: %+v", def)
	}
	if len(def.Prerequisites) != 1 || def.Prerequisites[0] != "Gloves on" {
		t.Errorf("expected scalar prerequisite wrapped in list, got %#v", def.Prerequisites)
	}
}

func TestLoad_CanonicalWinsOverAlias(t *testing.T) {
	raw := validRaw()
	raw["MTL_NUMBER"] = "legacy"
	def, report := Load(raw)
	if !report.Valid() {
		t.Fatalf("expected valid, got %+v", report.Violations)
	}
	if def.Number != "MTL-0042" {
		t.Errorf("expected canonical number to win, got %q", def.Number)
	}
	if len(report.Rewrites) != 0 {
		t.Errorf("expected no rewrites, got %+v", report.Rewrites)
	}
}

func TestLoad_SequenceNormalization(t *testing.T) {
	raw := validRaw()
	raw["safetyNotes"] = "Unplug first"
	raw["equipmentList"] = []any{"Screwdriver", nil, 3}
	raw["relatedProcedures"] = nil

	def, _ := Load(raw)
	if def == nil {
		t.Fatal("expected definition")
	}
	if len(def.SafetyNotes) != 1 || def.SafetyNotes[0] != "Unplug first" {
		t.Errorf("expected scalar to become one element, got %#v", def.SafetyNotes)
	}
	want := []string{"Screwdriver", "", "3"}
	if len(def.EquipmentList) != len(want) {
		t.Fatalf("expected %d equipment entries, got %#v", len(want), def.EquipmentList)
	}
	for i := range want {
		if def.EquipmentList[i] != want[i] {
			t.Errorf("equipment %d: expected %q, got %q", i, want[i], def.EquipmentList[i])
		}
	}
	if len(def.RelatedProcedures) != 0 {
		t.Errorf("expected empty related procedures, got %#v", def.RelatedProcedures)
	}
}

func TestLoad_NumbersStringified(t *testing.T) {
	raw := validRaw()
	raw["version"] = 2
	raw["revision"] = 1.5
	raw["estimatedTime"] = 30.0
	def, report := Load(raw)
	if !report.Valid() {
		t.Fatalf("expected valid, got %+v", report.Violations)
	}
	if def.Version != "2" {
		t.Errorf("expected version %q, got %q", "2", def.Version)
	}
	if def.Revision != "1.5" {
		t.Errorf("expected revision %q, got %q", "1.5", def.Revision)
	}
	if def.EstimatedTime != "30" {
		t.Errorf("expected estimated time %q, got %q", "30", def.EstimatedTime)
	}
}

func TestLoad_TroubleshootingListBecomesEmptyMapping(t *testing.T) {
	raw := validRaw()
	raw["troubleshooting"] = []any{"Paper jam", "Clear tray"}

	def, report := Load(raw)
	if !report.Valid() {
		t.Fatalf("expected generation to remain valid, got %+v", report.Violations)
	}
	if len(def.Troubleshooting) != 0 {
		t.Errorf("expected empty troubleshooting, got %#v", def.Troubleshooting)
	}
	if len(report.Notices) != 1 || !strings.Contains(report.Notices[0], "troubleshooting") {
		t.Errorf("expected one troubleshooting notice, got %v", report.Notices)
	}
}

func TestLoad_TroubleshootingPairsSorted(t *testing.T) {
	raw := validRaw()
	raw["troubleshooting"] = map[string]any{
		"Printer offline": "Check cable",
		"Blank pages":     "Replace toner",
	}
	def, _ := Load(raw)
	if len(def.Troubleshooting) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(def.Troubleshooting))
	}
	if def.Troubleshooting[0].Problem != "Blank pages" || def.Troubleshooting[0].Resolution != "Replace toner" {
		t.Errorf("unexpected first pair %+v", def.Troubleshooting[0])
	}
}

func TestDecode_JSONAndYAMLAgree(t *testing.T) {
	jsonSrc := `{"title":"Printer Reset","MTL_#":7,"version":1,"revision":"A","createdBy":"ops","steps":["a","b"]}`
	yamlSrc := "title: Printer Reset\nMTL_#: 7\nversion: 1\nrevision: A\ncreatedBy: ops\nsteps:\n  - a\n  - b\n"

	fromJSON, err := Decode(strings.NewReader(jsonSrc), FormatJSON)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	fromYAML, err := Decode(strings.NewReader(yamlSrc), FormatYAML)
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}

	a, ra := Load(fromJSON)
	b, rb := Load(fromYAML)
	if !ra.Valid() || !rb.Valid() {
		t.Fatalf("expected both valid: %+v / %+v", ra.Violations, rb.Violations)
	}
	if a.Number != "7" || b.Number != "7" {
		t.Errorf("expected number 7 from both, got %q and %q", a.Number, b.Number)
	}
	if a.Version != b.Version {
		t.Errorf("expected matching versions, got %q and %q", a.Version, b.Version)
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"MTL_TITLE", "Printer Reset"},
		{"MTL_NUMBER", "12"},
		{"VERSION_NUMBER", "2"},
		{"REVISION_NUMBER", "C"},
		{"CREATED_BY", "ops"},
		{"EQUIPMENT_LIST", "Gloves", "Screwdriver"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if _, err := f.NewSheet(SheetSteps); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	steps := [][]any{{"#", "STEP"}, {1, "Power off"}, {2, "Power on"}}
	for i, row := range steps {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetSteps, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	raw, err := Decode(bytes.NewReader(buf.Bytes()), FormatXLSX)
	if err != nil {
		t.Fatalf("decode xlsx: %v", err)
	}
	def, report := Load(raw)
	if !report.Valid() {
		t.Fatalf("expected valid workbook definition, got %+v", report.Violations)
	}
	if len(def.Steps) != 2 || def.Steps[0] != "Power off" || def.Steps[1] != "Power on" {
		t.Errorf("unexpected steps %#v", def.Steps)
	}
	if len(def.EquipmentList) != 2 {
		t.Errorf("expected 2 equipment entries, got %#v", def.EquipmentList)
	}
}

func TestParseDocumentType(t *testing.T) {
	tests := []struct {
		in   string
		want DocumentType
	}{
		{"quick-reference", QuickReference},
		{"MTL1", QuickReference},
		{"Detailed-Walkthrough", DetailedWalkthrough},
		{"mtl 2", DetailedWalkthrough},
		{"MTL-3", Teachback},
		{"teachback", Teachback},
		{"3", Teachback},
	}
	for _, tt := range tests {
		got, err := ParseDocumentType(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
	if _, err := ParseDocumentType("mtl9"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDocumentType_FileTag(t *testing.T) {
	if got := Teachback.FileTag(); got != "MTL3-Teachback" {
		t.Errorf("expected %q, got %q", "MTL3-Teachback", got)
	}
	if got := QuickReference.FileTag(); got != "MTL1-QuickReference" {
		t.Errorf("expected %q, got %q", "MTL1-QuickReference", got)
	}
}
