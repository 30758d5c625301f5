package definition

import "maps"

// alias maps a legacy producer key onto a canonical field.
type alias struct {
	Legacy    string
	Canonical string
}

// legacyAliases is evaluated in order; the first alias present for a
// field wins, and a canonical key always wins over any alias.
var legacyAliases = []alias{
	{"MTL_TITLE", FieldTitle},
	{"TITLE", FieldTitle},
	{"mtl_title", FieldTitle},

	{"MTL_NUMBER", FieldNumber},
	{"MTL_#", FieldNumber},
	{"MTL#", FieldNumber},
	{"mtl_number", FieldNumber},
	{"mtlNumber", FieldNumber},
	{"NUMBER", FieldNumber},

	{"VERSION_NUMBER", FieldVersion},
	{"VERSION", FieldVersion},
	{"version_number", FieldVersion},

	{"REVISION_NUMBER", FieldRevision},
	{"REVISION", FieldRevision},
	{"REV", FieldRevision},
	{"revision_number", FieldRevision},
	{"rev", FieldRevision},

	{"CREATED_DATE", FieldCreatedDate},
	{"created_date", FieldCreatedDate},
	{"DATE", FieldCreatedDate},

	{"CREATED_BY", FieldCreatedBy},
	{"created_by", FieldCreatedBy},
	{"AUTHOR", FieldCreatedBy},

	{"CATEGORY", FieldCategory},

	{"ESTIMATED_TIME", FieldEstimatedTime},
	{"estimated_time", FieldEstimatedTime},

	{"PRE_REQS", FieldPrerequisites},
	{"PREREQUISITES", FieldPrerequisites},
	{"pre_reqs", FieldPrerequisites},

	{"EQUIPMENT_LIST", FieldEquipmentList},
	{"REQ_EQUIP", FieldEquipmentList},
	{"equipment_list", FieldEquipmentList},
	{"equipment", FieldEquipmentList},

	{"COMPLETION_CRITERIA", FieldCompletionCriteria},
	{"COMP_CRIT", FieldCompletionCriteria},
	{"completion_criteria", FieldCompletionCriteria},

	{"STEPS", FieldSteps},

	{"SAFETY_NOTES", FieldSafetyNotes},
	{"safety_notes", FieldSafetyNotes},

	{"REQUIRED_TOOLS", FieldRequiredTools},
	{"TOOLS_REQUIRED", FieldRequiredTools},
	{"required_tools", FieldRequiredTools},

	{"RELATED_PROCEDURES", FieldRelatedProcedures},
	{"related_procedures", FieldRelatedProcedures},

	{"EQUIPMENT_MODELS", FieldEquipmentModels},
	{"equipment_models", FieldEquipmentModels},

	{"TROUBLESHOOTING", FieldTroubleshooting},
}

// Rewrite records one applied alias.
type Rewrite struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// applyAliases returns a copy of raw with legacy keys moved onto their
// canonical names. Shadowed aliases are dropped from the copy.
func applyAliases(raw map[string]any) (map[string]any, []Rewrite) {
	out := maps.Clone(raw)
	if out == nil {
		out = map[string]any{}
	}
	var rewrites []Rewrite
	for _, a := range legacyAliases {
		v, ok := out[a.Legacy]
		if !ok {
			continue
		}
		delete(out, a.Legacy)
		if _, exists := out[a.Canonical]; exists {
			continue
		}
		out[a.Canonical] = v
		rewrites = append(rewrites, Rewrite{From: a.Legacy, To: a.Canonical})
	}
	return out, rewrites
}
