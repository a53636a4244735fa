package render

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/carom/internal/carom"
)

// FrameInterval is the hot-seat loop period.
const FrameInterval = 16 * time.Millisecond

// Sounder plays feedback for simulation events.
type Sounder interface {
	Play(events []carom.Event)
}

// App is a local two-player match on one terminal.
type App struct {
	screen   tcell.Screen
	renderer *Renderer
	game     *carom.Game
	sound    Sounder
	status   string
}

// NewApp wires a game to a screen. sound may be nil.
func NewApp(screen tcell.Screen, g *carom.Game, sound Sounder) *App {
	return &App{
		screen:   screen,
		renderer: New(screen, g.Table()),
		game:     g,
		sound:    sound,
		status:   "aim with the arrows or mouse",
	}
}

func (a *App) Status() string { return a.status }

// HandleEvent applies one input event. It reports false once the user quits.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			a.nudge(0, carom.AimStep)
		case tcell.KeyDown:
			a.nudge(0, -carom.AimStep)
		case tcell.KeyLeft:
			a.nudge(-carom.AimStep, 0)
		case tcell.KeyRight:
			a.nudge(carom.AimStep, 0)
		case tcell.KeyEnter:
			a.shoot()
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case ' ':
				a.shoot()
			case 'c', 'C':
				a.game.CancelAim()
				a.status = "aim cancelled"
			}
		}

	case *tcell.EventMouse:
		col, row := ev.Position()
		x, z := a.renderer.Viewport().ToTable(col, row)
		a.game.Aim(carom.NewVec3(x, carom.BallRadius, z))
		if ev.Buttons()&tcell.Button1 != 0 {
			a.shoot()
		}

	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) nudge(dx, dz float64) {
	if !a.game.NudgeMarker(dx, dz) {
		a.status = "wait for the ball to stop"
	}
}

func (a *App) shoot() {
	if a.game.Shoot() {
		a.status = fmt.Sprintf("player %d shoots", a.game.CurrentPlayer())
		return
	}
	a.status = "aim first, and wait for the balls to stop"
}

// Step advances the table by dt seconds and reacts to what happened.
func (a *App) Step(dt float64) []carom.Event {
	events := a.game.Advance(dt)
	if a.sound != nil && len(events) > 0 {
		a.sound.Play(events)
	}
	for _, ev := range events {
		switch ev.Type {
		case carom.EventRallyEnd:
			if ev.Rally != nil {
				a.status = fmt.Sprintf("player %d %s (%+d)", ev.Rally.Shooter, ev.Rally.Kind, ev.Rally.Delta)
			}
		case carom.EventNewTurn:
			a.status += fmt.Sprintf(", player %d to shoot", a.game.CurrentPlayer())
		}
	}
	return events
}

// Draw renders the current frame and shows it.
func (a *App) Draw() {
	var path []carom.Vec3
	if a.game.Stick().State == carom.StickAiming {
		path = slices.Collect(a.game.AimPath())
	}
	a.renderer.Draw(a.game.Snapshot(), path, a.status)
	a.screen.Show()
}

// Run polls input and drives frames until the user quits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	last := time.Now()
	a.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok || !a.HandleEvent(ev) {
				return nil
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt > 0.1 {
				dt = 0.1
			}
			a.Step(dt)
			a.Draw()
		}
	}
}
