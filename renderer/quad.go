package renderer

import (
	"image"

	"github.com/pthm-cable/slime/sim"
)

// vertex is one corner of the full-screen quad.
type vertex struct {
	Pos sim.Vec2
	Tex sim.Vec2
}

// quadVertices is the unit quad as two triangles, centered on the origin.
var quadVertices = [6]vertex{
	{Pos: sim.Vec2{X: -0.5, Y: -0.5}, Tex: sim.Vec2{X: 0, Y: 0}},
	{Pos: sim.Vec2{X: 0.5, Y: -0.5}, Tex: sim.Vec2{X: 1, Y: 0}},
	{Pos: sim.Vec2{X: 0.5, Y: 0.5}, Tex: sim.Vec2{X: 1, Y: 1}},
	{Pos: sim.Vec2{X: -0.5, Y: -0.5}, Tex: sim.Vec2{X: 0, Y: 0}},
	{Pos: sim.Vec2{X: 0.5, Y: 0.5}, Tex: sim.Vec2{X: 1, Y: 1}},
	{Pos: sim.Vec2{X: -0.5, Y: 0.5}, Tex: sim.Vec2{X: 0, Y: 1}},
}

// quadPass draws the field as a textured quad and blends the result into a
// canvas that outlives the frame. It is only touched by render passes, which
// the command queue runs one at a time.
type quadPass struct {
	persistence bool

	width, height int
	src           []float32 // this frame's sampled intensity per pixel
	canvas        []float32 // blended intensity per pixel
}

// screenVertex is a vertex after projection to pixel coordinates.
type screenVertex struct {
	x, y float32
	tex  sim.Vec2
}

// draw renders field f with frame uniforms u into dst. A nil field draws an
// empty frame.
func (q *quadPass) draw(pool *sim.Pool, f *sim.Field, u *sim.Uniforms, dst *image.RGBA) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if w != q.width || h != q.height {
		q.width, q.height = w, h
		q.src = make([]float32, w*h)
		q.canvas = make([]float32, w*h)
	}
	clear(q.src)

	if f != nil {
		model := sim.Scale(float32(f.Size), float32(f.Size), 1)
		mvp := u.Projection.Mul(model)
		plane := f.Plane(u.SensesFuel())

		var tri [3]screenVertex
		for t := 0; t < len(quadVertices); t += 3 {
			for k := 0; k < 3; k++ {
				v := quadVertices[t+k]
				cx, cy := mvp.Apply(v.Pos.X, v.Pos.Y)
				tri[k] = screenVertex{
					x:   (cx + 1) * 0.5 * float32(w),
					y:   (1 - cy) * 0.5 * float32(h),
					tex: v.Tex,
				}
			}
			q.rasterize(pool, tri, f, plane)
		}
	}

	q.blend(pool, u.Color, dst)
}

// rasterize fills src with the field sampled at interpolated texcoords for
// every pixel center inside the triangle.
func (q *quadPass) rasterize(pool *sim.Pool, tri [3]screenVertex, f *sim.Field, plane []float32) {
	area := edge(tri[0], tri[1], tri[2].x, tri[2].y)
	if area == 0 {
		return
	}
	inv := 1 / area

	minX, maxX := bounds(tri[0].x, tri[1].x, tri[2].x, q.width)
	minY, maxY := bounds(tri[0].y, tri[1].y, tri[2].y, q.height)
	if minX >= maxX || minY >= maxY {
		return
	}

	size := float32(f.Size)
	pool.Dispatch(maxY-minY, func(_, r0, r1 int) {
		for py := minY + r0; py < minY+r1; py++ {
			cy := float32(py) + 0.5
			row := py * q.width
			for px := minX; px < maxX; px++ {
				cx := float32(px) + 0.5
				w0 := edge(tri[1], tri[2], cx, cy) * inv
				w1 := edge(tri[2], tri[0], cx, cy) * inv
				w2 := edge(tri[0], tri[1], cx, cy) * inv
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				tu := w0*tri[0].tex.X + w1*tri[1].tex.X + w2*tri[2].tex.X
				tv := w0*tri[0].tex.Y + w1*tri[1].tex.Y + w2*tri[2].tex.Y
				q.src[row+px] = f.Sample(plane, tu*size, tv*size)
			}
		}
	})
}

// blend mixes src into the canvas by the color alpha and writes the tinted
// canvas to dst.
func (q *quadPass) blend(pool *sim.Pool, color sim.Color, dst *image.RGBA) {
	a := color[3]
	keep := q.persistence && a < 1

	pool.Dispatch(q.height, func(_, r0, r1 int) {
		for y := r0; y < r1; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+q.width*4]
			for x := 0; x < q.width; x++ {
				i := y*q.width + x
				if keep {
					q.canvas[i] = q.canvas[i]*(1-a) + q.src[i]*a
				} else {
					q.canvas[i] = q.src[i]
				}
				c := q.canvas[i]
				row[x*4+0] = toByte(c * color[0])
				row[x*4+1] = toByte(c * color[1])
				row[x*4+2] = toByte(c * color[2])
				row[x*4+3] = 0xff
			}
		}
	})
}

// edge is the signed area of (a, b, p), positive when p is left of a->b.
func edge(a, b screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// bounds returns the pixel range [lo, hi) covered by three coordinates,
// clipped to [0, limit).
func bounds(a, b, c float32, limit int) (int, int) {
	lo := int(min(a, b, c))
	hi := int(max(a, b, c)) + 1
	return max(lo, 0), min(hi, limit)
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
