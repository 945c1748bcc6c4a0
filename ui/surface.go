package ui

import (
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/device"
)

// WindowSurface displays the frames presented to a swap chain in the raylib
// window. Blit must be called from the raylib thread between BeginDrawing
// and EndDrawing.
type WindowSurface struct {
	chain *device.SwapChain

	tex    rl.Texture2D
	loaded bool
	texW   int
	texH   int
	pixels []color.RGBA
}

// NewWindowSurface wraps chain for display.
func NewWindowSurface(chain *device.SwapChain) *WindowSurface {
	return &WindowSurface{chain: chain}
}

// Resize resizes the swap chain to the window's framebuffer.
func (w *WindowSurface) Resize(width, height int) {
	w.chain.Resize(width, height)
}

// Blit uploads the latest presented frame, if any, and draws the most recent
// upload stretched over the window.
func (w *WindowSurface) Blit() {
	img, release := w.chain.Acquire()
	if img != nil {
		w.upload(img)
	}
	release()

	if !w.loaded {
		return
	}
	rl.DrawTexturePro(
		w.tex,
		rl.Rectangle{X: 0, Y: 0, Width: float32(w.texW), Height: float32(w.texH)},
		rl.Rectangle{X: 0, Y: 0, Width: float32(rl.GetScreenWidth()), Height: float32(rl.GetScreenHeight())},
		rl.Vector2{X: 0, Y: 0},
		0,
		rl.White,
	)
}

// upload copies img into the texture, recreating it on a size change.
func (w *WindowSurface) upload(img *image.RGBA) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if !w.loaded || width != w.texW || height != w.texH {
		if w.loaded {
			rl.UnloadTexture(w.tex)
		}
		blank := rl.GenImageColor(width, height, rl.Black)
		w.tex = rl.LoadTextureFromImage(blank)
		rl.UnloadImage(blank)
		w.texW, w.texH = width, height
		w.pixels = make([]color.RGBA, width*height)
		w.loaded = true
	}

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		out := w.pixels[y*width : (y+1)*width]
		for x := range out {
			out[x] = color.RGBA{R: row[x*4], G: row[x*4+1], B: row[x*4+2], A: row[x*4+3]}
		}
	}
	rl.UpdateTexture(w.tex, w.pixels)
}

// Close releases the texture.
func (w *WindowSurface) Close() {
	if w.loaded {
		rl.UnloadTexture(w.tex)
		w.loaded = false
	}
}
