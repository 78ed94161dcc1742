package emu

import "math"

const (
	// DefaultOutputRate is the host playback rate.
	DefaultOutputRate = 48000
	// Model1CutoffHz is the Mega Drive Model 1 VA3 output filter corner.
	Model1CutoffHz = 2840.0
)

// lowPassAlpha returns the smoothing factor for a first-order RC low-pass
// filter at the given rate.
// Derived from: alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
func lowPassAlpha(rate int, cutoffHz float64) float64 {
	return 1.0 / (float64(rate)/(2*math.Pi*cutoffHz) + 1)
}

// Resampler converts native-rate stereo output to a host playback rate with
// a Bresenham stepper, optionally followed by a first-order low-pass.
type Resampler struct {
	inRate  int
	outRate int
	accum   int

	filter      bool
	alpha       float64
	filterPrevL float64
	filterPrevR float64

	out []int16
}

// NewResampler converts from inRate to outRate. cutoffHz <= 0 disables the
// output filter.
func NewResampler(inRate, outRate int, cutoffHz float64) *Resampler {
	r := &Resampler{
		inRate:  inRate,
		outRate: outRate,
		out:     make([]int16, 0, 2048),
	}
	if cutoffHz > 0 {
		r.filter = true
		r.alpha = lowPassAlpha(outRate, cutoffHz)
	}
	return r
}

// OutputRate returns the host playback rate.
func (r *Resampler) OutputRate() int {
	return r.outRate
}

// Process resamples interleaved stereo samples. The returned slice is reused
// by the next call.
func (r *Resampler) Process(in []int16) []int16 {
	r.out = r.out[:0]
	for i := 0; i+1 < len(in); i += 2 {
		r.accum += r.outRate
		for r.accum >= r.inRate {
			r.accum -= r.inRate
			r.out = append(r.out, in[i], in[i+1])
		}
	}
	if r.filter {
		r.applyLowPass(r.out)
	}
	return r.out
}

// applyLowPass applies a first-order RC low-pass filter to buf in place,
// per stereo channel with state persisting across calls.
func (r *Resampler) applyLowPass(buf []int16) {
	for i := 0; i+1 < len(buf); i += 2 {
		inL := float64(buf[i])
		inR := float64(buf[i+1])
		r.filterPrevL = r.alpha*inL + (1-r.alpha)*r.filterPrevL
		r.filterPrevR = r.alpha*inR + (1-r.alpha)*r.filterPrevR
		buf[i] = int16(math.Round(r.filterPrevL))
		buf[i+1] = int16(math.Round(r.filterPrevR))
	}
}

// ScaleVolume multiplies interleaved samples in place by vol, clamping to
// int16.
func ScaleVolume(buf []int16, vol float64) {
	if vol == 1 {
		return
	}
	for i, s := range buf {
		buf[i] = int16(clampInt32(int32(math.Round(float64(s)*vol)), -32768, 32767))
	}
}
