package audio

import (
	"math"
	"math/cmplx"
)

// FFTSize is the analysis window length in samples
const FFTSize = 2048

// Spectrum reduces a window of mono samples to bands magnitudes in [0,1].
// Frequency bins are grouped linearly, lowest band first. Windows shorter
// than FFTSize are zero padded at the front.
func Spectrum(samples []float64, bands int) []float64 {
	if bands <= 0 {
		return nil
	}
	out := make([]float64, bands)

	buf := make([]complex128, FFTSize)
	offset := FFTSize - len(samples)
	for i := 0; i < FFTSize; i++ {
		j := i - offset
		if j < 0 || j >= len(samples) {
			continue
		}
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(FFTSize-1)))
		buf[i] = complex(samples[j]*w, 0)
	}
	fft(buf)

	half := FFTSize / 2
	binSize := half / bands
	if binSize < 1 {
		binSize = 1
	}
	for b := 0; b < bands; b++ {
		start := b * binSize
		end := start + binSize
		if start >= half {
			break
		}
		if end > half {
			end = half
		}
		sum := 0.0
		for k := start; k < end; k++ {
			sum += cmplx.Abs(buf[k])
		}
		avg := sum / float64(end-start)

		// -80dB..0dB onto 0..1
		db := 20 * math.Log10(avg/float64(FFTSize)+1e-10)
		out[b] = math.Max(0, math.Min(1, (db+80)/80))
	}
	return out
}

// fft computes an in-place radix-2 FFT. len(x) must be a power of two.
func fft(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	bits := 0
	for m := n; m > 1; m >>= 1 {
		bits++
	}
	for i := 0; i < n; i++ {
		j := 0
		for b := 0; b < bits; b++ {
			if i&(1<<b) != 0 {
				j |= 1 << (bits - 1 - b)
			}
		}
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		wn := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				t := cmplx.Rect(1, wn*float64(k)) * x[start+k+half]
				x[start+k+half] = x[start+k] - t
				x[start+k] = x[start+k] + t
			}
		}
	}
}
