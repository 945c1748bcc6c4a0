// Package ui provides the interactive shell around the renderer: a raylib
// window surface that displays presented frames and a descriptor-driven
// raygui settings panel. Panel rows are defined as metadata over
// sim.Settings so adding a tunable is one descriptor.
package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/sim"
)

// WidgetType specifies how a field should be rendered.
type WidgetType int

const (
	WidgetSlider  WidgetType = iota // Float slider over Range
	WidgetSection                   // Section header
	WidgetSpacer                    // Vertical spacing
)

// FieldRange defines the value range for sliders.
type FieldRange struct {
	Min float32
	Max float32
}

// Clamp limits v to the range.
func (r FieldRange) Clamp(v float32) float32 {
	return min(max(v, r.Min), r.Max)
}

// FieldDescriptor defines one panel row bound to a settings field.
type FieldDescriptor struct {
	ID      string                        // Unique identifier for the field
	Label   string                        // Display label
	Widget  WidgetType                    // How to render
	Format  string                        // Printf format for the value (e.g., "%.2f")
	Range   FieldRange                    // Slider range
	Integer bool                          // Round slider values to whole numbers
	Restart bool                          // Changing the value requires a restart to take effect
	Get     func(*sim.Settings) float32   // Value extractor
	Set     func(*sim.Settings, float32)  // Value writer
	Visible func(sim.Settings) bool       // Optional visibility check (nil = always visible)
}

// SectionDescriptor defines a group of fields with a header.
type SectionDescriptor struct {
	ID     string            // Unique identifier
	Title  string            // Section header text
	Fields []FieldDescriptor // Fields in this section
}

// ColorPreset is a named trail tint.
type ColorPreset struct {
	Name  string
	Color sim.Color
}

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	HintColor      rl.Color
	Padding        int32
	LineHeight     int32
	RowHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 230},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Yellow,
		LabelColor:     rl.LightGray,
		ValueColor:     rl.RayWhite,
		HintColor:      rl.Color{R: 150, G: 150, B: 150, A: 255},
		Padding:        10,
		LineHeight:     16,
		RowHeight:      34,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}
