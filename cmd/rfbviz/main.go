// Command rfbviz serves the RFB annotation visualizer.
//
// Usage:
//
//	rfbviz [serve] [flags]         serve the web UI and JSON API
//	rfbviz tray [flags]            serve and show a system tray menu
//	rfbviz report -guid G [flags]  print a GUID's metrics to the terminal
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/rfbviz/internal/app"
	"github.com/ayusman/rfbviz/internal/report"
	"github.com/ayusman/rfbviz/internal/server"
	"github.com/ayusman/rfbviz/internal/store"
	"github.com/ayusman/rfbviz/internal/tray"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = runServe(ctx, args)
	case "tray":
		err = runTray(ctx, args)
	case "report":
		err = runReport(ctx, args)
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("rfbviz %s: %v", command, err)
	}
}

// setup loads configuration, installs the logger and opens the journal and
// the application. The returned closer releases the journal.
func setup(ctx context.Context, name string, args []string, extra func(*flag.FlagSet)) (context.Context, *config, *app.App, func(), error) {
	cfg, err := loadConfig(ctx, name, args, extra)
	if err != nil {
		return ctx, nil, nil, nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return ctx, nil, nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	ctx = clog.WithLogger(ctx, clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := cfg.resolvePaths(); err != nil {
		return ctx, nil, nil, nil, err
	}

	st, err := store.New(cfg.Journal)
	if err != nil {
		return ctx, nil, nil, nil, fmt.Errorf("initialize journal: %w", err)
	}

	a, err := app.New(ctx, cfg.appConfig(), st)
	if err != nil {
		st.Close()
		return ctx, nil, nil, nil, err
	}

	clog.FromContext(ctx).With("journal", st.Path()).
		With("data", cfg.DataDir).
		With("results", cfg.ResultsDir).
		Info("Loaded configuration")

	return ctx, cfg, a, func() { st.Close() }, nil
}

func newServer(ctx context.Context, cfg *config, a *app.App) *server.Server {
	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		clog.FromContext(ctx).With("dir", webDir).Info("Serving static files")
	}

	return server.New(server.Config{
		StaticDir: webDir,
		App:       a,
	})
}

func runServe(ctx context.Context, args []string) error {
	ctx, cfg, a, closeJournal, err := setup(ctx, "serve", args, nil)
	if err != nil {
		return err
	}
	defer closeJournal()

	return newServer(ctx, cfg, a).ListenAndServe(ctx, cfg.Addr)
}

// runTray serves the UI and shows the tray menu until either stops.
func runTray(ctx context.Context, args []string) error {
	ctx, cfg, a, closeJournal, err := setup(ctx, "tray", args, nil)
	if err != nil {
		return err
	}
	defer closeJournal()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New(a.Selection().Aggregation)
	t.OnOpen(func() {
		if err := openBrowser(browserURL(cfg.Addr)); err != nil {
			clog.FromContext(ctx).Warnf("Failed to open browser: %v", err)
		}
	})
	t.OnToggleAggregation(func() (string, error) {
		return a.ToggleAggregation(ctx)
	})
	t.OnQuit(cancel)
	a.OnAdjudicate(func(instanceID, _ string) {
		t.SetLastAdjudicated(instanceID)
	})

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return newServer(ctx, cfg, a).ListenAndServe(ctx, cfg.Addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		t.Quit()
		return nil
	})

	// systray must own the main thread
	t.Run()
	cancel()
	return g.Wait()
}

func runReport(ctx context.Context, args []string) error {
	var guid, frame string
	ctx, _, a, closeJournal, err := setup(ctx, "report", args, func(fs *flag.FlagSet) {
		fs.StringVar(&guid, "guid", "", "GUID to report on")
		fs.StringVar(&frame, "frame", "", "Also print both annotations of this frame")
	})
	if err != nil {
		return err
	}
	defer closeJournal()

	if guid == "" {
		return errors.New("-guid is required")
	}

	frames, err := a.Frames(ctx, guid)
	if err != nil {
		return err
	}
	sel := a.Selection()
	rows := make([]report.FrameRow, 0, len(frames))
	for _, f := range frames {
		m, err := a.Metrics(ctx, guid, f)
		if err != nil {
			return err
		}
		adjudicated, err := a.IsAdjudicated(ctx, guid, f)
		if err != nil {
			return err
		}
		rows = append(rows, report.FrameRow{Metrics: m, Adjudicated: adjudicated})
	}
	if err := report.Frames(os.Stdout, guid, sel.Aggregation, rows); err != nil {
		return err
	}

	if frame == "" {
		return nil
	}
	v, err := a.View(ctx, guid, frame)
	if err != nil {
		return err
	}
	for _, id := range a.Annotators() {
		if msg, ok := v.Errors[id]; ok {
			fmt.Fprintf(os.Stdout, "\n### %s\n\n%s\n", id, msg)
			continue
		}
		if err := report.Annotation(os.Stdout, id, v.Annotations[id]); err != nil {
			return err
		}
	}
	return nil
}

// browserURL turns a listen address into a local URL.
func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.rfbviz/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
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

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".rfbviz", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
