package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes window and keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	// Restart with the current agent count
	if rl.IsKeyPressed(rl.KeyR) && !g.panel.IsVisible() {
		g.renderer.Restart(g.renderer.Settings().AgentCount)
	}

	g.panel.HandleInput()
	g.hud.HandleInput()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := rl.GetScreenWidth()
	h := rl.GetScreenHeight()
	if w == g.width && h == g.height {
		return
	}
	g.width, g.height = w, h

	g.surface.Resize(w, h)
	g.renderer.OnResize(w, h)
}

// Draw shows the latest presented frame with the UI on top.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.surface.Blit()
	g.hud.Draw(g.hudData())
	g.panel.Draw(g.renderer)

	rl.EndDrawing()
}
