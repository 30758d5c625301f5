package definition

import (
	"fmt"
	"slices"
	"strings"
)

// Canonical field names.
const (
	FieldTitle              = "title"
	FieldNumber             = "number"
	FieldVersion            = "version"
	FieldRevision           = "revision"
	FieldCreatedDate        = "createdDate"
	FieldCreatedBy          = "createdBy"
	FieldCategory           = "category"
	FieldEstimatedTime      = "estimatedTime"
	FieldPrerequisites      = "prerequisites"
	FieldEquipmentList      = "equipmentList"
	FieldCompletionCriteria = "completionCriteria"
	FieldSteps              = "steps"
	FieldSafetyNotes        = "safetyNotes"
	FieldRequiredTools      = "requiredTools"
	FieldRelatedProcedures  = "relatedProcedures"
	FieldEquipmentModels    = "equipmentModels"
	FieldTroubleshooting    = "troubleshooting"
)

// ScalarFields lists the text-valued fields in declaration order.
var ScalarFields = []string{
	FieldTitle, FieldNumber, FieldVersion, FieldRevision,
	FieldCreatedDate, FieldCreatedBy, FieldCategory, FieldEstimatedTime,
}

// SequenceFields lists the ordered-sequence fields in declaration order.
var SequenceFields = []string{
	FieldPrerequisites, FieldEquipmentList, FieldCompletionCriteria, FieldSteps,
	FieldSafetyNotes, FieldRequiredTools, FieldRelatedProcedures, FieldEquipmentModels,
}

// RequiredFields must be present for a definition to validate.
var RequiredFields = []string{
	FieldTitle, FieldNumber, FieldVersion, FieldRevision, FieldCreatedBy, FieldSteps,
}

// TaskDefinition is one validated, normalized procedure.
// It is built once by Load and must not be mutated afterwards.
type TaskDefinition struct {
	Title         string `json:"title"`
	Number        string `json:"number"`
	Version       string `json:"version"`
	Revision      string `json:"revision"`
	CreatedDate   string `json:"createdDate"`
	CreatedBy     string `json:"createdBy"`
	Category      string `json:"category"`
	EstimatedTime string `json:"estimatedTime"`

	Prerequisites      []string `json:"prerequisites"`
	EquipmentList      []string `json:"equipmentList"`
	CompletionCriteria []string `json:"completionCriteria"`
	Steps              []string `json:"steps"`
	SafetyNotes        []string `json:"safetyNotes"`
	RequiredTools      []string `json:"requiredTools"`
	RelatedProcedures  []string `json:"relatedProcedures"`
	EquipmentModels    []string `json:"equipmentModels"`

	Troubleshooting []Troubleshoot `json:"troubleshooting"`
}

// Troubleshoot is one problem/resolution pair.
type Troubleshoot struct {
	Problem    string `json:"problem"`
	Resolution string `json:"resolution"`
}

// Identity names the definition for filenames and traceability.
func (d *TaskDefinition) Identity() string {
	id := d.Number
	if d.Version != "" {
		id += " v" + d.Version
	}
	if d.Revision != "" {
		id += " rev " + d.Revision
	}
	return strings.TrimSpace(id)
}

// Scalar returns the value of a text field.
func (d *TaskDefinition) Scalar(field string) (string, bool) {
	switch field {
	case FieldTitle:
		return d.Title, true
	case FieldNumber:
		return d.Number, true
	case FieldVersion:
		return d.Version, true
	case FieldRevision:
		return d.Revision, true
	case FieldCreatedDate:
		return d.CreatedDate, true
	case FieldCreatedBy:
		return d.CreatedBy, true
	case FieldCategory:
		return d.Category, true
	case FieldEstimatedTime:
		return d.EstimatedTime, true
	}
	return "", false
}

// Sequence returns a copy of an ordered-sequence field.
func (d *TaskDefinition) Sequence(field string) ([]string, bool) {
	var s []string
	switch field {
	case FieldPrerequisites:
		s = d.Prerequisites
	case FieldEquipmentList:
		s = d.EquipmentList
	case FieldCompletionCriteria:
		s = d.CompletionCriteria
	case FieldSteps:
		s = d.Steps
	case FieldSafetyNotes:
		s = d.SafetyNotes
	case FieldRequiredTools:
		s = d.RequiredTools
	case FieldRelatedProcedures:
		s = d.RelatedProcedures
	case FieldEquipmentModels:
		s = d.EquipmentModels
	default:
		return nil, false
	}
	out := slices.Clone(s)
	if out == nil {
		out = []string{}
	}
	return out, true
}

func (d *TaskDefinition) setScalar(field, v string) {
	switch field {
	case FieldTitle:
		d.Title = v
	case FieldNumber:
		d.Number = v
	case FieldVersion:
		d.Version = v
	case FieldRevision:
		d.Revision = v
	case FieldCreatedDate:
		d.CreatedDate = v
	case FieldCreatedBy:
		d.CreatedBy = v
	case FieldCategory:
		d.Category = v
	case FieldEstimatedTime:
		d.EstimatedTime = v
	}
}

func (d *TaskDefinition) setSequence(field string, v []string) {
	switch field {
	case FieldPrerequisites:
		d.Prerequisites = v
	case FieldEquipmentList:
		d.EquipmentList = v
	case FieldCompletionCriteria:
		d.CompletionCriteria = v
	case FieldSteps:
		d.Steps = v
	case FieldSafetyNotes:
		d.SafetyNotes = v
	case FieldRequiredTools:
		d.RequiredTools = v
	case FieldRelatedProcedures:
		d.RelatedProcedures = v
	case FieldEquipmentModels:
		d.EquipmentModels = v
	}
}

// DocumentType selects the composed sections and header caption.
type DocumentType int

const (
	QuickReference DocumentType = iota + 1
	DetailedWalkthrough
	Teachback
)

// DocumentTypes lists every type in numbering order.
var DocumentTypes = []DocumentType{QuickReference, DetailedWalkthrough, Teachback}

func (t DocumentType) String() string {
	switch t {
	case QuickReference:
		return "Quick-Reference"
	case DetailedWalkthrough:
		return "Detailed-Walkthrough"
	case Teachback:
		return "Teachback"
	}
	return fmt.Sprintf("DocumentType(%d)", int(t))
}

// Label is the short caption printed next to the header, e.g. "MTL 2".
func (t DocumentType) Label() string {
	return fmt.Sprintf("MTL %d", int(t))
}

// FileTag encodes the type in artifact filenames.
func (t DocumentType) FileTag() string {
	return fmt.Sprintf("MTL%d-%s", int(t), strings.ReplaceAll(t.String(), "-", ""))
}

func (t DocumentType) Valid() bool {
	return t >= QuickReference && t <= Teachback
}

// ParseDocumentType accepts names ("teachback"), legacy tags ("MTL-3", "mtl 3") and bare numbers.
func ParseDocumentType(s string) (DocumentType, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch key {
	case "quickreference", "quick", "qr", "mtl1", "1":
		return QuickReference, nil
	case "detailedwalkthrough", "detailed", "walkthrough", "mtl2", "2":
		return DetailedWalkthrough, nil
	case "teachback", "mtl3", "3":
		return Teachback, nil
	}
	return 0, fmt.Errorf("unknown document type %q", s)
}

func (t DocumentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid document type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *DocumentType) UnmarshalText(b []byte) error {
	v, err := ParseDocumentType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
