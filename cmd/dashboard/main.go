package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/couchcryptid/road-defect-dashboard/internal/adapter/console"
	"github.com/couchcryptid/road-defect-dashboard/internal/adapter/feed"
	"github.com/couchcryptid/road-defect-dashboard/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/road-defect-dashboard/internal/adapter/http"
	"github.com/couchcryptid/road-defect-dashboard/internal/config"
	"github.com/couchcryptid/road-defect-dashboard/internal/dashboard"
	"github.com/couchcryptid/road-defect-dashboard/internal/loader"
	"github.com/couchcryptid/road-defect-dashboard/internal/observability"
	"github.com/joho/godotenv"
)

const commandHelp = "commands: markers | heatmap | critical | streets | satellite | upload | place <lat> <lon> | reload | quit"

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client, err := feed.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, metrics, logger)
	if err != nil {
		logger.Error("invalid feed base url", "error", err)
		os.Exit(1)
	}
	ld := loader.New(client, logger, metrics)

	surface := geojson.NewSurface(cfg.MapOutput, logger)
	presenter := console.NewPresenter(os.Stdout)
	view := dashboard.NewView(surface, newRand(), cfg.PulseInterval, logger, metrics)
	app := dashboard.NewApp(ld, view, presenter, newRand(), cfg.UploadDelay, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.DataDir, ld, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bind before the first load: the default feed is served by this process.
	ln, err := srv.Listen()
	if err != nil {
		logger.Error("http listen failed", "addr", cfg.HTTPAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("loading feed", "base_url", client.BaseURL(), "map_output", cfg.MapOutput)
	// A failed initial load is already shown to the user; reload can recover.
	_ = app.Init(ctx)

	fmt.Fprintln(os.Stdout, commandHelp)
	go func() {
		runCommands(ctx, os.Stdin, app, view, presenter)
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	view.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// newRand returns an unshared source for cost estimates and demo picks.
func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // not security sensitive
}

// runCommands reads one command per line until quit, EOF or cancellation.
func runCommands(ctx context.Context, in io.Reader, app *dashboard.App, view *dashboard.View, presenter dashboard.Presenter) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		if err := dispatch(ctx, fields, app, view, presenter); err != nil {
			presenter.ShowError(err)
		}
	}
}

func dispatch(ctx context.Context, fields []string, app *dashboard.App, view *dashboard.View, presenter dashboard.Presenter) error {
	cmd, args := fields[0], fields[1:]

	if mode, err := dashboard.ParseMode(cmd); err == nil {
		return view.SetMode(mode)
	}
	if tiles, err := dashboard.ParseTiles(cmd); err == nil {
		return view.SetTiles(tiles)
	}

	switch cmd {
	case "reload":
		// Errors are presented by the app itself.
		_ = app.Reload(ctx)
		return nil
	case "upload":
		_, err := app.Analyze(ctx)
		return err
	case "place":
		if len(args) != 2 {
			return errors.New("usage: place <lat> <lon>")
		}
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q", args[1])
		}
		rec, err := app.Place(lat, lon)
		if err != nil {
			return err
		}
		presenter.ShowNotice(fmt.Sprintf("placed %s (severity %.1f) at %.5f, %.5f", rec.Category, rec.Severity, lat, lon))
		return nil
	case "help":
		presenter.ShowNotice(commandHelp)
		return nil
	default:
		return fmt.Errorf("unknown command %q (%s)", cmd, commandHelp)
	}
}
