package definition

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names recognised by DecodeXLSX.
const (
	SheetDefinition      = "Definition"
	SheetSteps           = "Steps"
	SheetTroubleshooting = "Troubleshooting"
)

// DecodeXLSX reads a workbook exported by legacy spreadsheet producers.
//
// The definition sheet (named "Definition", else the first sheet) holds one
// field per row: column A is the field name, the remaining non-empty cells are
// its value (one cell is a scalar, several are a list). Optional "Steps" and
// "Troubleshooting" sheets hold one step or one problem/resolution pair per row
// and override the same fields on the definition sheet.
func DecodeXLSX(r io.Reader) (map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	main := sheets[0]
	if name, ok := findSheet(sheets, SheetDefinition); ok {
		main = name
	}

	rows, err := f.GetRows(main)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", main, err)
	}
	raw := make(map[string]any, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		key := strings.TrimSpace(row[0])
		var vals []any
		for _, cell := range row[1:] {
			if c := strings.TrimSpace(cell); c != "" {
				vals = append(vals, c)
			}
		}
		switch len(vals) {
		case 0:
			raw[key] = nil
		case 1:
			raw[key] = vals[0]
		default:
			raw[key] = vals
		}
	}

	if name, ok := findSheet(sheets, SheetSteps); ok {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		var steps []any
		for i, row := range rows {
			text := stepCell(row)
			if i == 0 && isStepsCaption(row) {
				continue
			}
			if text != "" {
				steps = append(steps, text)
			}
		}
		raw[FieldSteps] = steps
		delete(raw, "STEPS")
	}

	if name, ok := findSheet(sheets, SheetTroubleshooting); ok {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		pairs := map[string]any{}
		for i, row := range rows {
			if len(row) < 2 {
				continue
			}
			problem := strings.TrimSpace(row[0])
			if i == 0 {
				switch strings.ToLower(problem) {
				case "problem", "issue":
					continue
				}
			}
			if problem != "" {
				pairs[problem] = strings.TrimSpace(row[1])
			}
		}
		raw[FieldTroubleshooting] = pairs
		delete(raw, "TROUBLESHOOTING")
	}
	return raw, nil
}

// stepCell takes the step text from "#, text" rows or single-column rows.
func stepCell(row []string) string {
	if len(row) >= 2 {
		if _, err := strconv.Atoi(strings.TrimSpace(row[0])); err == nil {
			return strings.TrimSpace(row[1])
		}
	}
	if len(row) > 0 {
		return strings.TrimSpace(row[0])
	}
	return ""
}

func isStepsCaption(row []string) bool {
	if len(row) == 0 {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(row[0])) {
	case "#", "step", "steps":
		return true
	}
	return false
}

func findSheet(sheets []string, name string) (string, bool) {
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}
