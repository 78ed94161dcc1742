package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ringBufferMillis is how much audio the ring buffer holds.
const ringBufferMillis = 170

// bytesPerFrame is one stereo pair of signed 16-bit samples.
const bytesPerFrame = 4

// AudioPlayer manages audio playback via oto.
// It writes int16 stereo samples to a ring buffer which oto's player
// reads from in a pull model.
type AudioPlayer struct {
	player     *oto.Player
	ringBuffer *AudioRingBuffer
	sampleRate int
}

// oto allows one context per process, so the first player fixes the rate.
var (
	otoCtx      *oto.Context
	otoRate     int
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
func ensureOtoContext(sampleRate int) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		otoRate = sampleRate
		<-readyChan
	})
	if otoInitErr == nil && otoRate != sampleRate {
		return nil, fmt.Errorf("oto context already running at %d Hz, requested %d Hz", otoRate, sampleRate)
	}
	return otoCtx, otoInitErr
}

// ringCapacity returns the ring buffer size in frames for a rate.
func ringCapacity(sampleRate int) int {
	return sampleRate * ringBufferMillis / 1000
}

// NewAudioPlayer creates and initializes audio playback via oto at
// sampleRate.
func NewAudioPlayer(sampleRate int, volume float64) (*AudioPlayer, error) {
	ctx, err := ensureOtoContext(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	rb := NewAudioRingBuffer(ringCapacity(sampleRate))
	player := ctx.NewPlayer(rb)
	player.SetBufferSize(AudioTargetBytes(sampleRate))
	player.SetVolume(volume)
	player.Play()

	return &AudioPlayer{
		player:     player,
		ringBuffer: rb,
		sampleRate: sampleRate,
	}, nil
}

// AudioTargetBytes is the buffered amount pacing aims for: 100ms.
func AudioTargetBytes(sampleRate int) int {
	return sampleRate / 10 * bytesPerFrame
}

// SampleRate returns the playback rate.
func (a *AudioPlayer) SampleRate() int {
	return a.sampleRate
}

// QueueSamples queues interleaved int16 stereo samples for oto to consume.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	a.ringBuffer.Write(samples)
}

// GetBufferLevel returns the total bytes of audio data currently buffered
// (ring buffer + oto player internal buffer). Used for pacing.
func (a *AudioPlayer) GetBufferLevel() int {
	return a.ringBuffer.Buffered() + a.player.BufferedSize()
}

// Dropped returns the frames discarded on ring buffer overflow.
func (a *AudioPlayer) Dropped() int {
	return a.ringBuffer.Dropped()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close cleans up audio resources.
func (a *AudioPlayer) Close() {
	if a.ringBuffer != nil {
		a.ringBuffer.Close()
	}
	if a.player != nil {
		a.player.Close()
	}
}
