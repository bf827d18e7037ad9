package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"cycleview/internal/analyzer"
	"cycleview/internal/api"
	"cycleview/internal/cache"
	"cycleview/internal/config"
	"cycleview/internal/export"
	"cycleview/internal/models"
	"cycleview/internal/server"
	"cycleview/internal/setup"
	"cycleview/internal/view"
)

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openCache builds the API source, wrapped in the configured cache when
// caching is enabled. The returned func releases the cache backend.
func openCache(ctx context.Context, cfg *config.Config, configPath string, client *api.Client, logger *slog.Logger) (*cache.CachedClient, func(), error) {
	if !cfg.Cache.Enabled {
		return cache.NewCachedClient(client, nil, cfg.Cache.TTL, false, logger), func() {}, nil
	}

	switch cfg.Cache.Backend {
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.Cache.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewCachedClient(client, store, cfg.Cache.TTL, true, logger), func() { store.Close() }, nil
	default:
		store, err := cache.OpenFileStore(cache.CacheFilePath(configPath))
		if err != nil {
			return nil, nil, err
		}
		return cache.NewCachedClient(client, store, cfg.Cache.TTL, true, logger), func() {}, nil
	}
}

// parseCriteria builds filter criteria from the string-valued range flags;
// an empty flag leaves its bound unset.
func parseCriteria(search, timeFilter, minCycle, maxCycle, minDuration, maxDuration string) (models.FilterCriteria, error) {
	c := models.FilterCriteria{SearchQuery: search}

	tf, err := models.ParseTimeFilter(timeFilter)
	if err != nil {
		return c, err
	}
	c.TimeFilter = tf

	for _, b := range []struct {
		name string
		val  string
		dst  **int
	}{
		{"min-cycle", minCycle, &c.MinCycleNumber},
		{"max-cycle", maxCycle, &c.MaxCycleNumber},
	} {
		if b.val == "" {
			continue
		}
		n, err := strconv.Atoi(b.val)
		if err != nil {
			return c, fmt.Errorf("-%s: %w", b.name, err)
		}
		*b.dst = &n
	}

	for _, b := range []struct {
		name string
		val  string
		dst  **float64
	}{
		{"min-duration", minDuration, &c.MinDuration},
		{"max-duration", maxDuration, &c.MaxDuration},
	} {
		if b.val == "" {
			continue
		}
		f, err := strconv.ParseFloat(b.val, 64)
		if err != nil {
			return c, fmt.Errorf("-%s: %w", b.name, err)
		}
		*b.dst = &f
	}

	return c, nil
}

// writeExport saves the selected cycle, or the filtered list when nothing
// is selected, under the dashboard's download filename in dir.
func writeExport(dir string, v view.View) (string, error) {
	var (
		name   string
		cycles []models.CycleSummary
	)
	if v.Selected != nil {
		name = export.CycleFilename(v.Selected.Cycle, v.IMEI)
		cycles = []models.CycleSummary{v.Selected.Detail.CycleSummary}
	} else {
		if len(v.Filtered) == 0 {
			return "", errors.New("no cycles to export")
		}
		name = export.BulkFilename(v.IMEI, len(v.Filtered), v.Total)
		cycles = v.Filtered
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(export.ToCSV(cycles)), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func main() {
	var (
		configPath  string
		imei        string
		limit       int
		cycle       int
		search      string
		timeFilter  string
		minCycle    string
		maxCycle    string
		minDuration string
		maxDuration string
		outDir      string
	)

	flag.StringVar(&configPath, "config", "config.yaml", "Path to the config file")
	flag.StringVar(&imei, "imei", "", "Device IMEI (defaults to the first configured device)")
	flag.IntVar(&limit, "limit", 0, "Number of most recent cycles to fetch (default from config)")
	flag.IntVar(&cycle, "cycle", -1, "Cycle number to show in detail")
	flag.StringVar(&search, "q", "", "Search by cycle number or start date")
	flag.StringVar(&timeFilter, "time", "all", "Time period: all, week, month, 3months, 6months, year")
	flag.StringVar(&minCycle, "min-cycle", "", "Lowest cycle number to include")
	flag.StringVar(&maxCycle, "max-cycle", "", "Highest cycle number to include")
	flag.StringVar(&minDuration, "min-duration", "", "Shortest cycle duration in hours to include")
	flag.StringVar(&maxDuration, "max-duration", "", "Longest cycle duration in hours to include")
	flag.StringVar(&outDir, "out", ".", "Directory for CSV exports")
	exportCSV := flag.Bool("export", false, "Export the selected cycle, or the filtered cycles, to CSV")
	asJSON := flag.Bool("json", false, "Print the view as JSON")
	interactive := flag.Bool("interactive", false, "Navigate cycles interactively")
	serve := flag.Bool("serve", false, "Run the HTTP dashboard")
	probe := flag.Bool("probe", false, "Check the configured devices and suggest configuration")
	dumpCache := flag.Bool("dump-cache", false, "Print the response cache and exit")
	clearCache := flag.Bool("clear-cache", false, "Empty the response cache and exit")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Debug = *debug
	logger := newLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg, logger)
	src, closeCache, err := openCache(ctx, cfg, configPath, client, logger)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer closeCache()

	if *dumpCache {
		src.DumpCache(os.Stdout)
		return
	}
	if *clearCache {
		if err := src.ClearCache(ctx); err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		fmt.Println("Cache cleared")
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid timezone: %v", err)
	}
	filterer := analyzer.NewFilterer(cfg.Display.DateLayout, loc)

	if *probe {
		if len(cfg.Devices) == 0 {
			log.Fatal("No devices configured (set devices in the config or ALLOWED_IMEIS)")
		}
		statuses := setup.NewProber(src).Probe(ctx, cfg.Devices)
		if err := setup.PrintReport(os.Stdout, statuses); err != nil {
			log.Fatalf("Probe failed: %v", err)
		}
		return
	}

	if *serve {
		srv := server.New(cfg, src, filterer, logger)
		if err := srv.ListenAndServe(ctx, os.Stdout); err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	if imei == "" {
		if len(cfg.Devices) == 0 {
			log.Fatal("No device given and none configured (use -imei, devices in the config or ALLOWED_IMEIS)")
		}
		imei = cfg.Devices[0]
	}
	if len(cfg.Devices) > 0 && !cfg.Allowed(imei) {
		log.Fatalf("Device %s is not in the configured device list", imei)
	}

	criteria, err := parseCriteria(search, timeFilter, minCycle, maxCycle, minDuration, maxDuration)
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	dash := view.NewDashboard(src, filterer, limit, logger)
	if err := dash.Load(ctx, imei); err != nil {
		log.Fatalf("Failed to load cycles: %v", err)
	}
	dash.SetCriteria(criteria)

	if cycle >= 0 {
		if err := dash.Select(ctx, cycle); err != nil {
			log.Fatalf("Failed to load cycle %d: %v", cycle, err)
		}
	}

	if *interactive {
		if err := runInteractive(ctx, os.Stdin, os.Stdout, dash, outDir); err != nil {
			log.Fatalf("Interactive session failed: %v", err)
		}
		return
	}

	v := dash.Snapshot(time.Now())

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			log.Fatalf("Encoding view: %v", err)
		}
	} else {
		printOverview(os.Stdout, v)
		if v.Selected != nil {
			printCycle(os.Stdout, v.Selected)
		}
	}

	if *exportCSV {
		path, err := writeExport(outDir, v)
		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Exported %s\n", path)
	}
}
