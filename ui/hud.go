package ui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/telemetry"
)

// HUDData holds everything the stats overlay shows.
type HUDData struct {
	FPS    int
	Agents int
	Field  telemetry.FieldStats
	Perf   telemetry.PerfStats
}

// HUD renders field statistics and pass timings in the bottom-left corner.
type HUD struct {
	renderer *Renderer
	visible  bool
}

// NewHUD creates a hidden HUD.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Toggle switches HUD visibility.
func (h *HUD) Toggle() bool {
	h.visible = !h.visible
	return h.visible
}

// HandleInput toggles the HUD with F1.
func (h *HUD) HandleInput() {
	if rl.IsKeyPressed(rl.KeyF1) {
		h.Toggle()
	}
}

// hudPasses are the pass rows, in frame order.
var hudPasses = []string{
	telemetry.PhaseInit,
	telemetry.PhaseDiffuse,
	telemetry.PhaseAgents,
	telemetry.PhaseRender,
	telemetry.PhaseStats,
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	if !h.visible {
		return
	}
	r := h.renderer
	t := r.Theme

	const width, labelW, barW = 260, 80, 120
	height := t.Padding*2 + t.LineHeight*(7+int32(len(hudPasses))) + 3*2 + 4
	x := t.Padding
	y := int32(rl.GetScreenHeight()) - height - t.Padding

	r.DrawPanel(x, y, width, height)
	x += t.Padding
	y += t.Padding

	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%d", data.FPS), labelW)
	y = r.DrawLabelValue(x, y, "Agents", fmt.Sprintf("%d", data.Agents), labelW)
	y = r.DrawLabelValue(x, y, "Field", fmt.Sprintf("%d x %d", data.Field.Size, data.Field.Size), labelW)
	y = r.DrawBar(x, y, "Coverage", float32(data.Field.Coverage), labelW, barW)
	y = r.DrawBar(x, y, "Trail", float32(data.Field.TrailMean), labelW, barW)
	y = r.DrawBar(x, y, "Fuel", float32(data.Field.FuelMean), labelW, barW)

	y = r.DrawSectionHeader(x, y+4, fmt.Sprintf("Frame %.2f ms", float64(data.Perf.AvgFrameDuration.Microseconds())/1000))
	for _, phase := range hudPasses {
		y = r.DrawLabelValue(x, y, phase, fmt.Sprintf("%.1f%%", data.Perf.PhasePct[phase]), labelW)
	}
}
