package sim

// Diffuse blurs and decays the trail plane in one pass over every cell.
// Each output cell depends only on the previous values of its 3x3
// neighbourhood (clamped at the edges), so rows are processed in parallel
// into the scratch plane which is swapped in afterwards.
//
// When the fuel economy is active the same pass regrows fuel toward its
// capacity and converts a share of the decayed trail (waste) back into fuel.
func Diffuse(pool *Pool, f *Field, u *Uniforms) {
	dt := u.DeltaTime
	blend := clamp01(u.DiffuseRate * dt)
	keep := 1 - u.DecayRate*dt
	if keep < 0 {
		keep = 0
	}

	fuel := u.FuelEnabled
	load := clamp01(u.FuelLoadRate * dt)
	convert := clamp01(u.WasteConversionRate * dt)

	size := f.Size
	src, dst := f.Trail, f.trailTmp
	fuelSrc, fuelDst, fuelCap := f.Fuel, f.fuelTmp, f.FuelCap

	pool.Dispatch(size, func(_, y0, y1 int) {
		for y := y0; y < y1; y++ {
			yN := max(y-1, 0)
			yS := min(y+1, size-1)
			for x := 0; x < size; x++ {
				xW := max(x-1, 0)
				xE := min(x+1, size-1)

				var sum float32
				var count int
				for yy := yN; yy <= yS; yy++ {
					row := src[yy*size:]
					for xx := xW; xx <= xE; xx++ {
						sum += row[xx]
						count++
					}
				}

				i := y*size + x
				c := src[i]
				mean := sum / float32(count)
				v := (c + (mean-c)*blend) * keep

				if fuel {
					waste := v * convert
					v -= waste

					fv := fuelSrc[i]
					if fuelCap != nil {
						fv += (fuelCap[i] - fv) * load
					}
					fuelDst[i] = clamp01(fv + waste)
				}

				dst[i] = clamp01(v)
			}
		}
	})

	f.Trail, f.trailTmp = dst, src
	if fuel {
		f.Fuel, f.fuelTmp = fuelDst, fuelSrc
	}
}
