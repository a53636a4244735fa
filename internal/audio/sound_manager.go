package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/playmatatu/carom/internal/carom"
)

const sampleRate = beep.SampleRate(44100)

// Tone is one short blip.
type Tone struct {
	Freq     float64
	Duration time.Duration
	Volume   float64
}

// ToneFor picks the cue for a simulation event. ok is false for events that
// stay silent.
func ToneFor(ev carom.Event) (Tone, bool) {
	switch ev.Type {
	case carom.EventStrike:
		return Tone{Freq: 220, Duration: 60 * time.Millisecond, Volume: 0.35}, true
	case carom.EventBallHit:
		return Tone{Freq: 880, Duration: 40 * time.Millisecond, Volume: 0.3}, true
	case carom.EventWallHit:
		return Tone{Freq: 330, Duration: 50 * time.Millisecond, Volume: 0.2}, true
	case carom.EventRallyEnd:
		if ev.Rally == nil {
			return Tone{}, false
		}
		switch ev.Rally.Kind {
		case carom.RallyScore:
			return Tone{Freq: 1320, Duration: 180 * time.Millisecond, Volume: 0.3}, true
		case carom.RallyMiss:
			return Tone{Freq: 165, Duration: 150 * time.Millisecond, Volume: 0.25}, true
		case carom.RallyFoul:
			return Tone{Freq: 110, Duration: 250 * time.Millisecond, Volume: 0.3}, true
		}
	}
	return Tone{}, false
}

// SoundManager plays event cues through one shared mixer. Every method is a
// no-op until Initialize succeeds, so a machine without audio still plays.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

func NewSoundManager() *SoundManager {
	return &SoundManager{mixer: &beep.Mixer{}}
}

// Initialize opens the speaker. Calling it twice is harmless.
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Play queues a cue for each audible event.
func (sm *SoundManager) Play(events []carom.Event) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	for _, ev := range events {
		if tone, ok := ToneFor(ev); ok {
			sm.mixer.Add(NewBlip(sampleRate, tone))
		}
	}
}

func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// Blip is a sine tone with a linear decay envelope.
type Blip struct {
	sr    beep.SampleRate
	tone  Tone
	pos   int
	total int
}

func NewBlip(sr beep.SampleRate, tone Tone) *Blip {
	return &Blip{sr: sr, tone: tone, total: sr.N(tone.Duration)}
}

func (b *Blip) Stream(samples [][2]float64) (n int, ok bool) {
	if b.pos >= b.total {
		return 0, false
	}
	for i := range samples {
		if b.pos >= b.total {
			return i, true
		}
		t := float64(b.pos) / float64(b.sr)
		env := 1 - float64(b.pos)/float64(b.total)
		v := b.tone.Volume * env * math.Sin(2*math.Pi*b.tone.Freq*t)
		samples[i][0] = v
		samples[i][1] = v
		b.pos++
	}
	return len(samples), true
}

func (b *Blip) Err() error { return nil }
