package printdoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/mtlgen/internal/style"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B int
}

// ParseHex reads a 6-digit hex color, with or without a leading '#'.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	return RGB{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, nil
}

func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// Stylesheet is the fixed look of the print document. Sizes are in points.
type Stylesheet struct {
	FontFamily   string
	FontSize     float64
	TitleSize    float64
	SectionSize  float64
	NoteSize     float64
	LineHeight   float64
	Margin       float64
	PageSize     string
	Fill         RGB
	HeaderText   RGB
	Text         RGB
	Border       RGB
	CellPadding  float64
	NoteLineGap  float64
	ParagraphGap float64
}

// DefaultStylesheet mirrors the default document profile.
func DefaultStylesheet() Stylesheet {
	return FromProfile(style.DefaultProfile())
}

// FromProfile derives the print look from a document style profile so the
// binary and print documents share fill, text color and margins.
func FromProfile(p style.Profile) Stylesheet {
	s := Stylesheet{
		FontFamily:   "Helvetica",
		FontSize:     10,
		TitleSize:    16,
		SectionSize:  12,
		NoteSize:     8,
		LineHeight:   1.3,
		Margin:       float64(p.Margin) / 20,
		PageSize:     "Letter",
		Fill:         RGB{0x00, 0x69, 0x9B},
		HeaderText:   RGB{0xFF, 0xFF, 0xFF},
		Text:         RGB{0x00, 0x00, 0x00},
		Border:       RGB{0x80, 0x80, 0x80},
		CellPadding:  3,
		NoteLineGap:  22,
		ParagraphGap: 6,
	}
	if c, err := ParseHex(p.Fill); err == nil {
		s.Fill = c
	}
	if c, err := ParseHex(p.HeaderTextColor); err == nil {
		s.HeaderText = c
	}
	return s
}

// CSS renders the stylesheet for the HTML preview.
func (s Stylesheet) CSS() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@page { size: %s; margin: %gpt; }\n", strings.ToLower(s.PageSize), s.Margin)
	fmt.Fprintf(&b, "body { font-family: %s, Arial, sans-serif; font-size: %gpt; line-height: %g; color: #%s; }\n",
		s.FontFamily, s.FontSize, s.LineHeight, s.Text.Hex())
	fmt.Fprintf(&b, "h1 { font-size: %gpt; margin: 0 0 %gpt; }\n", s.TitleSize, s.ParagraphGap)
	fmt.Fprintf(&b, "h2 { font-size: %gpt; margin: %gpt 0 %gpt; }\n", s.SectionSize, 2*s.ParagraphGap, s.ParagraphGap)
	fmt.Fprintf(&b, "table { width: 100%%; border-collapse: collapse; margin-bottom: %gpt; }\n", s.ParagraphGap)
	fmt.Fprintf(&b, "th, td { border: 1px solid #%s; padding: %gpt; vertical-align: top; text-align: left; }\n", s.Border.Hex(), s.CellPadding)
	fmt.Fprintf(&b, "th { background: #%s; color: #%s; font-weight: bold; }\n", s.Fill.Hex(), s.HeaderText.Hex())
	b.WriteString("thead { display: table-header-group; }\n")
	fmt.Fprintf(&b, "em { font-size: %gpt; }\n", s.NoteSize)
	b.WriteString(".page-break { page-break-after: always; break-after: page; }\n")
	fmt.Fprintf(&b, ".notes { min-height: %gpt; background: repeating-linear-gradient(transparent 0 %gpt, #%s %gpt %gpt); }\n",
		4*s.NoteLineGap, s.NoteLineGap-1, s.Border.Hex(), s.NoteLineGap-1, s.NoteLineGap)
	return b.String()
}
