// Command occlusion-sandbox walks a listener through a deck layout and shows how each sound is muffled
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/muffle/audio"
	"github.com/lixenwraith/muffle/config"
	"github.com/lixenwraith/muffle/engine"
	"github.com/lixenwraith/muffle/inspect"
	"github.com/lixenwraith/muffle/parameter"
	"github.com/lixenwraith/muffle/raycast"
	"github.com/lixenwraith/muffle/status"
	"github.com/lixenwraith/muffle/topology"
)

var (
	layoutFlag  = flag.String("layout", "", "Scene TOML file (default: built-in deck)")
	configFlag  = flag.String("config", "", "Engine config TOML file")
	audioFlag   = flag.Bool("audio", false, "Play through the speaker")
	inspectFlag = flag.String("inspect", "", "Inspector listen address, e.g. "+parameter.InspectAddr)
	debugFlag   = flag.Bool("debug", false, "Write logs to logs/sandbox.log")
)

func main() {
	flag.Parse()

	if f := setupLogging(*debugFlag); f != nil {
		defer f.Close()
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "occlusion-sandbox: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configFlag)
	if cfg == nil {
		return err
	}
	if err != nil {
		slog.Warn("config loaded with corrections", "err", err)
	}
	cfg.Audio.Enabled = *audioFlag

	data := defaultScene
	if *layoutFlag != "" {
		if data, err = os.ReadFile(*layoutFlag); err != nil {
			return err
		}
	}
	sc, err := loadScene(data, cfg)
	if err != nil {
		return err
	}

	logger := slog.Default()
	backend := audio.NewEngine(cfg, os.DirFS("."), logger)
	defer backend.Close()

	rays := raycast.NewBuffer()
	reg := status.NewRegistry()
	eng := engine.New(sc.graph, sc.catalog, backend, cfg,
		engine.WithLogger(logger),
		engine.WithRays(rays),
		engine.WithStatus(reg),
	)
	defer eng.Close()

	var insp *inspect.Server
	if *inspectFlag != "" {
		insp = inspect.NewServer(eng, reg, logger)
		goSafe(func() {
			if err := insp.Listen(*inspectFlag); err != nil {
				slog.Error("inspector stopped", "err", err)
			}
		})
		defer insp.Shutdown()
	}

	w := newWorld(sc, eng)
	if err := w.spawn(); err != nil {
		slog.Warn("some emitters did not start", "err", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	registerCrashScreen(screen)
	defer func() {
		handleCrash(recover())
	}()

	loop(screen, w, rays, topology.NewWallCaster(sc.graph), insp)
	return nil
}

// loop ticks the engine at the frame rate and applies key presses between ticks
// The wall caster drains ray requests in place of a physics step
func loop(screen tcell.Screen, w *world, rays *raycast.Buffer, caster raycast.Caster, insp *inspect.Server) {
	ticker := time.NewTicker(parameter.FrameUpdateInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	goSafe(func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	})

	last := time.Now()
	report := w.tick(0)
	draw(screen, w, report)

	for {
		select {
		case ev := <-events:
			if !handleEvent(w, ev) {
				return
			}

		case now := <-ticker.C:
			rays.Drain(caster, 0)
			report = w.tick(now.Sub(last))
			last = now
			if insp != nil {
				insp.Publish(report)
			}
			draw(screen, w, report)
		}
	}
}

// handleEvent applies one input event; false quits
func handleEvent(w *world, ev tcell.Event) bool {
	key, ok := ev.(*tcell.EventKey)
	if !ok {
		return true
	}

	step := parameter.SandboxMoveStep
	switch key.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		w.move(0, step)
	case tcell.KeyDown:
		w.move(0, -step)
	case tcell.KeyLeft:
		w.move(-step, 0)
	case tcell.KeyRight:
		w.move(step, 0)
	case tcell.KeyRune:
		return handleRune(w, key.Rune())
	}
	return true
}

func handleRune(w *world, r rune) bool {
	var err error
	switch r {
	case 'q':
		return false
	case 'd':
		err = w.toggleDoor()
	case 'f':
		err = w.flood(parameter.SandboxFloodStep)
	case 'g':
		err = w.flood(-parameter.SandboxFloodStep)
	case 'e':
		w.toggleEavesdrop()
	case 'h':
		w.toggleHydrophone()
	case 's':
		w.toggleSuit()
	case 'a':
		err = w.alarm()
	}
	if err != nil {
		w.message = err.Error()
		slog.Debug("sandbox action failed", "key", string(r), "err", err)
	}
	return true
}
