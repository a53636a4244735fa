package audio

import (
	"testing"
	"time"

	"github.com/playmatatu/carom/internal/carom"
)

func TestToneFor(t *testing.T) {
	ball, ok := ToneFor(carom.Event{Type: carom.EventBallHit})
	if !ok {
		t.Fatal("Expected a ball hit cue")
	}
	wall, ok := ToneFor(carom.Event{Type: carom.EventWallHit})
	if !ok {
		t.Fatal("Expected a wall hit cue")
	}
	if ball.Freq <= wall.Freq {
		t.Errorf("Ball clicks should be higher than cushions: %v vs %v", ball.Freq, wall.Freq)
	}

	if _, ok := ToneFor(carom.Event{Type: carom.EventNewTurn}); ok {
		t.Error("Turn changes should be silent")
	}
	if _, ok := ToneFor(carom.Event{Type: carom.EventRallyEnd}); ok {
		t.Error("A rally event without an outcome should be silent")
	}
	neutral := carom.Event{Type: carom.EventRallyEnd, Rally: &carom.RallyOutcome{Kind: carom.RallyNeutral}}
	if _, ok := ToneFor(neutral); ok {
		t.Error("Neutral rallies should be silent")
	}
	score := carom.Event{Type: carom.EventRallyEnd, Rally: &carom.RallyOutcome{Kind: carom.RallyScore}}
	if _, ok := ToneFor(score); !ok {
		t.Error("Expected a scoring cue")
	}
}

func TestBlipLengthAndDecay(t *testing.T) {
	tone := Tone{Freq: 440, Duration: 10 * time.Millisecond, Volume: 0.5}
	b := NewBlip(sampleRate, tone)
	want := sampleRate.N(tone.Duration)

	buf := make([][2]float64, 128)
	total := 0
	peak := 0.0
	for {
		n, ok := b.Stream(buf)
		if !ok {
			break
		}
		for _, s := range buf[:n] {
			if s[0] != s[1] {
				t.Fatal("Expected identical channels")
			}
			if s[0] > peak {
				peak = s[0]
			}
		}
		total += n
	}
	if total != want {
		t.Errorf("Streamed %d samples, want %d", total, want)
	}
	if peak > tone.Volume {
		t.Errorf("Peak %f exceeds volume %f", peak, tone.Volume)
	}
	if err := b.Err(); err != nil {
		t.Errorf("Unexpected error %v", err)
	}
}

// Audio devices are often missing in CI, so nothing here requires one.
func TestSoundManagerGracefulDegradation(t *testing.T) {
	sm := NewSoundManager()
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Sound operations panicked without initialization: %v", r)
		}
	}()

	sm.Play([]carom.Event{{Type: carom.EventStrike}, {Type: carom.EventBallHit}})
	sm.Cleanup()
	sm.Play(nil)
}
