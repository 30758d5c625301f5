package style

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Profile is the fixed visual treatment applied to generated documents.
// Measurements are in twips (1/20 pt). A Profile is a value; copies are
// independent and Apply never modifies it.
type Profile struct {
	Fill            string `yaml:"fill" json:"fill"`
	HeaderTextColor string `yaml:"headerTextColor" json:"headerTextColor"`
	BoldHeaders     bool   `yaml:"boldHeaders" json:"boldHeaders"`
	Margin          int    `yaml:"margin" json:"margin"`
	PageWidth       int    `yaml:"pageWidth" json:"pageWidth"`
	PageHeight      int    `yaml:"pageHeight" json:"pageHeight"`
	// ShadeStepsHeader shades the step-table caption row. When false,
	// Apply actively clears shading from that row.
	ShadeStepsHeader bool `yaml:"shadeStepsHeader" json:"shadeStepsHeader"`
}

// DefaultProfile is US Letter with half-inch margins and a blue header fill.
func DefaultProfile() Profile {
	return Profile{
		Fill:            "00699B",
		HeaderTextColor: "FFFFFF",
		BoldHeaders:     true,
		Margin:          720,
		PageWidth:       12240,
		PageHeight:      15840,
	}
}

// WithShadeStepsHeader returns a copy with the steps-header policy set.
func (p Profile) WithShadeStepsHeader(v bool) Profile {
	p.ShadeStepsHeader = v
	return p
}

// TableWidth is the usable width between the left and right margins.
func (p Profile) TableWidth() int64 {
	return int64(p.PageWidth - 2*p.Margin)
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

func (p Profile) Validate() error {
	if !hexColor.MatchString(p.Fill) {
		return fmt.Errorf("fill %q is not a 6-digit hex color", p.Fill)
	}
	if p.HeaderTextColor != "" && !hexColor.MatchString(p.HeaderTextColor) {
		return fmt.Errorf("headerTextColor %q is not a 6-digit hex color", p.HeaderTextColor)
	}
	if p.Margin < 0 {
		return fmt.Errorf("margin must not be negative")
	}
	if p.PageWidth <= 0 || p.PageHeight <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if p.TableWidth() <= 0 {
		return fmt.Errorf("margins (%d) leave no room on a %d-wide page", p.Margin, p.PageWidth)
	}
	return nil
}

// LoadProfile reads a YAML profile; keys it omits keep their values from base.
func LoadProfile(path string, base Profile) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read style profile: %w", err)
	}
	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, fmt.Errorf("parse style profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return base, fmt.Errorf("style profile %s: %w", path, err)
	}
	return p, nil
}
