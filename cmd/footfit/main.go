package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/footfit/internal/capture"
	"github.com/ayusman/footfit/internal/config"
	"github.com/ayusman/footfit/internal/detector"
	"github.com/ayusman/footfit/internal/scene"
	"github.com/ayusman/footfit/internal/server"
	"github.com/ayusman/footfit/internal/session"
	"github.com/ayusman/footfit/internal/store"
	"github.com/ayusman/footfit/internal/tracking"
	"github.com/ayusman/footfit/internal/tray"
)

// defaultObjectColor is used until the user picks one.
var defaultObjectColor = color.RGBA{R: 30, G: 144, B: 255, A: 255}

func main() {
	configPath := flag.String("config", filepath.Join(config.DataDir(), "config.yaml"), "path to the YAML config file")
	withTray := flag.Bool("tray", false, "show a system tray menu")
	flag.Parse()

	fmt.Println("Footfit - Virtual Shoe Try-On")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	camCfg := capture.Config{
		Facing:            capture.Facing(cfg.Camera.Facing),
		UserDevice:        cfg.Camera.UserDevice,
		EnvironmentDevice: cfg.Camera.EnvironmentDevice,
		Width:             cfg.Camera.Width,
		Height:            cfg.Camera.Height,
	}

	det := newDetector(cfg.Detector)
	defer det.Close()

	model := scene.NewModel("sneaker", loadObjectColor(st))

	sess := session.New(session.Config{
		Camera:   capture.NewCameraWithConfig(camCfg),
		Detector: det,
		Model:    model,
		Store:    st,
		Facing:   camCfg.Facing,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		Tracking: cfg.Tracking,
		Pipeline: cfg.Pipeline,
	})
	defer sess.Close()

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Session:   sess,
		Model:     model,
	})

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		serverErr <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if *withTray {
		if err := runTray(sess, cfg.Server.Addr, serverErr); err != nil {
			log.Printf("Server failed: %v", err)
		}
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Printf("Server failed: %v", err)
	case <-sig:
		log.Println("Shutting down")
	}
}

// runTray blocks in the tray event loop until Quit is chosen or the server stops.
// A server failure ends the loop and is returned so main can release its resources.
func runTray(sess *session.Session, addr string, serverErr <-chan error) error {
	t := tray.New()

	t.OnToggle(func(active bool) error {
		if !active {
			return sess.Exit()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sess.Enter(ctx)
	})
	t.OnSettings(func() {
		openBrowser("http://localhost" + addr)
	})
	t.OnQuit(func() {
		log.Println("Quit requested from tray")
	})

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	go func() {
		for snap := range updates {
			t.SetActive(snap.Active)
			t.SetStatus(tracking.Status{State: snap.State, Message: snap.Message})
		}
	}()

	failed := make(chan error, 1)
	go func() {
		if err := <-serverErr; err != nil {
			failed <- err
			t.Quit()
		}
	}()

	t.Run()

	select {
	case err := <-failed:
		return err
	default:
		return nil
	}
}

// newDetector picks the pose engine: a replay file when configured, then the
// MediaPipe service, falling back to the mock detector.
func newDetector(cfg config.DetectorConfig) detector.Detector {
	if cfg.ReplayPath != "" {
		d, err := detector.NewReplayDetector(cfg.ReplayPath)
		if err == nil {
			log.Printf("Replaying %d recorded pose frames from %s", d.Len(), cfg.ReplayPath)
			return d
		}
		log.Printf("Failed to load replay file (%v)", err)
	}

	dcfg := detector.DefaultConfig()
	dcfg.ScriptPath = cfg.ScriptPath
	dcfg.PythonPath = cfg.PythonPath

	mp, err := detector.NewMediaPipeDetector(dcfg)
	if err == nil {
		log.Println("Using MediaPipe pose detection")
		return mp
	}
	log.Printf("MediaPipe not available (%v), using mock detector", err)
	return detector.NewMockDetector()
}

// loadObjectColor restores the saved object color.
func loadObjectColor(st *store.Store) color.RGBA {
	saved, err := st.Settings().Get(store.SettingObjectColor)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to load object color: %v", err)
		}
		return defaultObjectColor
	}

	c, err := scene.ParseHexColor(saved)
	if err != nil {
		log.Printf("Ignoring saved object color: %v", err)
		return defaultObjectColor
	}
	return c
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
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.footfit/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
