package audio

import "math"

// resampleTaps is the number of sinc lobes kept on each side of the
// interpolation point. More taps sharpen the band limit at the cost of
// CPU; 16 is plenty for speech.
const resampleTaps = 16

// resample converts a unit-scale signal from srcRate to dstRate using
// windowed-sinc interpolation. When downsampling, the sinc cutoff is
// scaled to the destination Nyquist frequency to avoid aliasing.
func resample(in []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate || len(in) == 0 {
		return in
	}

	ratio := float64(dstRate) / float64(srcRate)
	outLen := int(math.Round(float64(len(in)) * ratio))
	if outLen == 0 {
		return nil
	}

	cutoff := 1.0
	if ratio < 1 {
		cutoff = ratio
	}

	width := resampleTaps
	if ratio < 1 {
		// Widen the kernel when downsampling so the narrowed sinc still
		// spans enough input samples.
		width = int(math.Ceil(float64(resampleTaps) / ratio))
	}

	out := make([]float64, outLen)
	for i := range out {
		center := float64(i) / ratio
		left := int(math.Floor(center)) - width + 1
		right := int(math.Floor(center)) + width

		var sum float64
		for j := left; j <= right; j++ {
			if j < 0 || j >= len(in) {
				continue
			}
			x := center - float64(j)
			sum += in[j] * cutoff * sinc(cutoff*x) * hamming(x, float64(width))
		}
		out[i] = sum
	}

	return out
}

// sinc is the normalized sinc function sin(πx)/(πx).
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// hamming evaluates a Hamming window of half-width w at offset x,
// returning 0 outside the window.
func hamming(x, w float64) float64 {
	if x < -w || x > w {
		return 0
	}
	return 0.54 + 0.46*math.Cos(math.Pi*x/w)
}
