package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/ayusman/sonogest/internal/app"
	"github.com/ayusman/sonogest/internal/capture"
	"github.com/ayusman/sonogest/internal/config"
	"github.com/ayusman/sonogest/internal/control"
	"github.com/ayusman/sonogest/internal/feed"
	"github.com/ayusman/sonogest/internal/log"
	"github.com/ayusman/sonogest/internal/server"
	"github.com/ayusman/sonogest/internal/store"
	"github.com/ayusman/sonogest/internal/synth"
	"github.com/ayusman/sonogest/internal/tray"
)

func main() {
	cfg := config.Load()
	log.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Error("sonogest failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	output := openOutput(cfg)
	if output != nil {
		defer output.Close()
	}

	mode := control.ModeAmbient
	if cfg.GestureMode {
		mode = control.ModeGesture
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sess *app.Session
	hub := server.NewHub(func() control.Snapshot { return sess.Snapshot() })

	newSession := func(source capture.MotionSource) *app.Session {
		sc := app.Config{
			Source:       source,
			Store:        st,
			TickInterval: cfg.TickInterval(),
			Mode:         mode,
			Seed:         cfg.Seed,
			Frequency:    []control.FrequencySink{hub},
			Output:       output,
		}
		if cfg.FeedURL != "" {
			sc.Feed = feed.NewClient(cfg.FeedURL)
		}
		return app.New(sc)
	}

	var source capture.MotionSource
	var preview *capture.Preview
	if cfg.CameraEnabled() {
		preview = capture.NewPreview()
		camSource := capture.NewCameraSource(capture.NewCamera(cfg.CameraID, cfg.TickHz))
		camSource.SetPreview(preview)
		source = camSource
	}

	sess = newSession(source)
	if err := sess.Start(ctx); err != nil {
		if source == nil {
			return fmt.Errorf("start session: %w", err)
		}
		log.Warn("camera unavailable, running without motion input", "camera", cfg.CameraID, "error", err)
		sess = newSession(nil)
		preview = nil
		if err := sess.Start(ctx); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}
	defer sess.Stop()
	sess.State().Subscribe(hub.Publish)

	srv := server.New(server.Config{
		StaticDir:  cfg.StaticDir,
		Store:      st,
		Controller: sess,
		Hub:        hub,
		Preview:    preview,
		SessionID:  sess.ID(),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe(ctx, cfg.Addr)
	}()

	if cfg.Tray {
		runTray(ctx, stop, sess, panelURL(cfg.Addr))
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			stop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	stop()
	if err := <-serverErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// openOutput opens the configured MIDI port, or returns nil.
func openOutput(cfg config.Config) synth.Output {
	if cfg.MIDIPort == "" {
		return nil
	}
	out, err := synth.OpenMIDI(cfg.MIDIPort, cfg.MIDIChannel)
	if err != nil {
		log.Warn("midi output disabled", "error", err, "available", strings.Join(synth.OutPorts(), ", "))
		return nil
	}
	return out
}

// runTray blocks on the tray loop until quit is chosen or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, sess *app.Session, url string) {
	tr := tray.New(sess.State().Mode())
	tr.OnToggleMode(sess.ToggleMode)
	tr.OnReset(func() { sess.Reset() })
	tr.OnOpenPanel(func() { openBrowser(url) })
	tr.OnQuit(stop)
	tr.Publish(sess.Snapshot())
	sess.State().Subscribe(tr.Publish)

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()
	tr.Run()
}

func panelURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "error", err)
	}
}
