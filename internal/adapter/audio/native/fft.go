package native

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// PackSpectrum transforms n samples into an n-byte frequency frame.
//
// The layout interleaves signed 8-bit real and imaginary parts: bytes 0 and 1
// hold the real parts of the DC and Nyquist bins, bytes 2k and 2k+1 the real
// and imaginary part of bin k for 0 < k < n/2. A full-scale sine lands at
// about half of the int8 range.
func PackSpectrum(samples []float64) domain.SpectrumFrame {
	n := len(samples)
	if n < 2 {
		return make(domain.SpectrumFrame, n)
	}

	windowed := window.Hann(append([]float64(nil), samples...))
	coeffs := fft.FFTReal(windowed)

	scale := 2 * 127 / float64(n)
	frame := make(domain.SpectrumFrame, n)
	frame[0] = toInt8(real(coeffs[0]) * scale)
	frame[1] = toInt8(real(coeffs[n/2]) * scale)
	for k := 1; k < n/2; k++ {
		frame[2*k] = toInt8(real(coeffs[k]) * scale)
		frame[2*k+1] = toInt8(imag(coeffs[k]) * scale)
	}
	return frame
}

// toInt8 rounds v into the int8 range and returns its two's complement byte.
func toInt8(v float64) byte {
	v = math.Round(v)
	v = math.Max(math.MinInt8, math.Min(math.MaxInt8, v))
	return byte(int8(v))
}
