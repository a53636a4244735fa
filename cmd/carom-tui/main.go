package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/carom/internal/audio"
	"github.com/playmatatu/carom/internal/carom"
	"github.com/playmatatu/carom/internal/render"
)

var muteFlag = flag.Bool("mute", false, "Disable sound")

func main() {
	flag.Parse()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Failed to create screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Failed to initialise screen: %v", err)
	}
	screen.EnableMouse()

	var sound render.Sounder
	var audioErr error
	if !*muteFlag {
		sm := audio.NewSoundManager()
		// Non-fatal, the game runs without sound
		if audioErr = sm.Initialize(); audioErr == nil {
			defer sm.Cleanup()
			sound = sm
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	app := render.NewApp(screen, carom.NewStandardGame(), sound)
	runErr := app.Run(ctx)
	screen.Fini()

	if audioErr != nil {
		log.Printf("Audio initialization failed: %v", audioErr)
	}
	if runErr != nil && runErr != context.Canceled {
		log.Printf("Exited: %v", runErr)
		os.Exit(1)
	}
}
