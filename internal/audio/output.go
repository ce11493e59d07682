package audio

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Output is the sound device the engine streams into. Lock and Unlock
// guard streamers that the device is currently pulling from.
type Output interface {
	Init(sampleRate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// SpeakerOutput plays through the system speaker
type SpeakerOutput struct {
	mu   sync.Mutex
	rate beep.SampleRate
}

// NewSpeakerOutput creates an output backed by beep's speaker package
func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

// Init opens the speaker at sampleRate, reopening only when the rate changes
func (o *SpeakerOutput) Init(sampleRate beep.SampleRate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rate == sampleRate {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return err
	}
	o.rate = sampleRate
	return nil
}

func (o *SpeakerOutput) Play(s beep.Streamer) { speaker.Play(s) }

func (o *SpeakerOutput) Clear() {
	if o.initialized() {
		speaker.Clear()
	}
}

func (o *SpeakerOutput) Lock() {
	if o.initialized() {
		speaker.Lock()
	}
}

func (o *SpeakerOutput) Unlock() {
	if o.initialized() {
		speaker.Unlock()
	}
}

func (o *SpeakerOutput) initialized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rate != 0
}
