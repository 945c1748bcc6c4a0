package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/sim"
)

// Controller is the part of the renderer the panel drives.
type Controller interface {
	Settings() sim.Settings
	UpdateSettings(fn func(*sim.Settings))
	Restart(agentCount int)
}

// SettingsPanel is the live parameter panel. It is hidden by default and
// toggled by clicking the top-left corner of the window or pressing Tab.
type SettingsPanel struct {
	theme      Theme
	sections   []SectionDescriptor
	width      int32
	sliderW    int32
	toggleZone int32

	visible bool
	scroll  int32

	// Restart-only values are staged until the restart button is pressed.
	pendingAgents int
	pendingSpawn  sim.SpawnMode
	staged        bool

	fps int
}

// NewSettingsPanel creates a hidden panel.
func NewSettingsPanel(width, sliderWidth, toggleZone int) *SettingsPanel {
	return &SettingsPanel{
		theme:      DefaultTheme(),
		sections:   SettingsSections(),
		width:      int32(width),
		sliderW:    int32(sliderWidth),
		toggleZone: int32(toggleZone),
	}
}

// IsVisible returns whether the panel is shown.
func (p *SettingsPanel) IsVisible() bool {
	return p.visible
}

// Toggle switches panel visibility.
func (p *SettingsPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// SetFPS sets the frame rate shown in the panel header.
func (p *SettingsPanel) SetFPS(n int) {
	p.fps = n
}

// inToggleZone reports whether a click at (x, y) hits the toggle corner.
func (p *SettingsPanel) inToggleZone(x, y float32) bool {
	z := float32(p.toggleZone)
	return x >= 0 && y >= 0 && x < z && y < z
}

// HandleInput processes toggle and scroll input. Call once per frame before Draw.
func (p *SettingsPanel) HandleInput() {
	if rl.IsKeyPressed(rl.KeyTab) {
		p.Toggle()
	}
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		m := rl.GetMousePosition()
		if p.inToggleZone(m.X, m.Y) {
			p.Toggle()
		}
	}
	if p.visible {
		p.scroll += int32(rl.GetMouseWheelMove() * float32(p.theme.RowHeight))
		p.scroll = min(p.scroll, 0)
	}
}

// Draw renders the panel on the right edge of the screen and applies any
// edits to ctrl.
func (p *SettingsPanel) Draw(ctrl Controller) {
	t := p.theme
	screenW := int32(rl.GetScreenWidth())
	screenH := int32(rl.GetScreenHeight())

	if !p.visible {
		rl.DrawText("Tab: settings", t.Padding, screenH-t.Padding-t.FontSize, t.FontSize, t.HintColor)
		return
	}

	current := ctrl.Settings()
	if !p.staged {
		p.pendingAgents = current.AgentCount
		p.pendingSpawn = current.SpawnMode
		p.staged = true
	}

	x := screenW - p.width
	rl.DrawRectangle(x, 0, p.width, screenH, t.PanelBg)
	rl.DrawRectangleLines(x, 0, p.width, screenH, t.PanelBorder)

	px := float32(x + t.Padding)
	y := p.scroll + t.Padding

	rl.DrawText(fmt.Sprintf("Slime  %d fps", p.fps), int32(px), y, 16, rl.White)
	y += t.LineHeight + 8

	type edit struct {
		fd FieldDescriptor
		v  float32
	}
	var edits []edit

	for _, sd := range p.sections {
		rl.DrawText(sd.Title, int32(px), y, t.HeaderFontSize, t.SectionHeader)
		y += t.LineHeight + 2

		for _, fd := range sd.Fields {
			if fd.Visible != nil && !fd.Visible(current) {
				continue
			}
			switch fd.Widget {
			case WidgetSection:
				rl.DrawText(fd.Label, int32(px), y, t.HeaderFontSize, t.SectionHeader)
				y += t.LineHeight
				continue
			case WidgetSpacer:
				y += 6
				continue
			}

			value := fd.Get(&current)
			if fd.Restart {
				value = float32(p.pendingAgents)
			}
			rl.DrawText(fd.Label, int32(px), y, t.FontSize, t.LabelColor)
			rl.DrawText(fmt.Sprintf(fd.Format, value), int32(px)+p.sliderW+8, y+t.LineHeight, t.FontSize, t.ValueColor)

			rect := rl.Rectangle{X: px, Y: float32(y + t.LineHeight), Width: float32(p.sliderW), Height: 14}
			nv := gui.SliderBar(rect, "", "", value, fd.Range.Min, fd.Range.Max)
			if nv != value {
				if fd.Restart {
					p.pendingAgents = int(fd.Range.Clamp(nv))
				} else {
					edits = append(edits, edit{fd: fd, v: nv})
				}
			}
			y += t.RowHeight
		}
		y += 4
	}

	if len(edits) > 0 {
		ctrl.UpdateSettings(func(s *sim.Settings) {
			for _, e := range edits {
				applySlider(e.fd, s, e.v)
			}
		})
	}

	// Color presets
	bw := float32(p.width-t.Padding*2-12) / float32(len(ColorPresets))
	for i, preset := range ColorPresets {
		rect := rl.Rectangle{X: px + float32(i)*(bw+4), Y: float32(y), Width: bw, Height: 22}
		if gui.Button(rect, preset.Name) {
			ctrl.UpdateSettings(func(s *sim.Settings) { applyPreset(s, preset) })
		}
	}
	y += 30

	// Spawn mode, applied on restart
	modes := []sim.SpawnMode{sim.SpawnRandom, sim.SpawnCircle, sim.SpawnInward}
	mw := float32(p.width-t.Padding*2-8) / float32(len(modes))
	for i, mode := range modes {
		label := string(mode)
		if mode == p.pendingSpawn {
			label = "[" + label + "]"
		}
		rect := rl.Rectangle{X: px + float32(i)*(mw+4), Y: float32(y), Width: mw, Height: 22}
		if gui.Button(rect, label) {
			p.pendingSpawn = mode
		}
	}
	y += 30

	if gui.Button(rl.Rectangle{X: px, Y: float32(y), Width: 120, Height: 28}, "Restart") {
		p.restart(ctrl)
	}
}

// restart applies staged values and restarts the simulation.
func (p *SettingsPanel) restart(ctrl Controller) {
	spawn := p.pendingSpawn
	if spawn != "" {
		ctrl.UpdateSettings(func(s *sim.Settings) { s.SpawnMode = spawn })
	}
	ctrl.Restart(p.pendingAgents)
	p.staged = false
}
