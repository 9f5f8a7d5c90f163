// Package main is the command line analyzer: it loads firewall and
// authentication logs, runs the detection engine, renders a console
// report, and optionally exports, archives, and browses the results.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/henrilopes1/log-analyzer/internal/config"
	"github.com/henrilopes1/log-analyzer/internal/detect"
	"github.com/henrilopes1/log-analyzer/internal/export"
	"github.com/henrilopes1/log-analyzer/internal/geo"
	"github.com/henrilopes1/log-analyzer/internal/loader"
	"github.com/henrilopes1/log-analyzer/internal/logging"
	"github.com/henrilopes1/log-analyzer/internal/normalize"
	"github.com/henrilopes1/log-analyzer/internal/report"
	"github.com/henrilopes1/log-analyzer/internal/schema"
	"github.com/henrilopes1/log-analyzer/internal/storage"
	"github.com/henrilopes1/log-analyzer/internal/tui"
)

func main() {
	var (
		firewallPath = flag.String("firewall", "", "firewall log file (.csv or .json)")
		authPath     = flag.String("auth", "", "authentication log file (.csv or .json)")
		configPath   = flag.String("config", "", "configuration file (defaults to configs/config.yaml)")

		bruteThreshold = flag.Int("brute-threshold", 0, "override brute force attempt threshold")
		bruteWindow    = flag.Int("brute-window", 0, "override brute force window in minutes")
		scanMinPorts   = flag.Int("scan-min-ports", 0, "override port scan unique port threshold")
		scanWindow     = flag.Int("scan-window", 0, "override port scan window in minutes")
		scanAllActions = flag.Bool("scan-all-actions", false, "consider ALLOW as well as DENY traffic for port scans")

		noGeo       = flag.Bool("no-geo", false, "skip geolocation enrichment")
		exportDir   = flag.String("export-dir", "", "override export directory")
		noExport    = flag.Bool("no-export", false, "skip CSV and JSON export")
		interactive = flag.Bool("interactive", false, "browse suspects in the terminal after analysis")
	)
	flag.Parse()

	if *firewallPath == "" && *authPath == "" {
		fmt.Fprintln(os.Stderr, "at least one of -firewall or -auth is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.Logging)

	applyOverrides(cfg, *bruteThreshold, *bruteWindow, *scanMinPorts, *scanWindow, *scanAllActions, *exportDir)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	records, dropped, err := loadRecords(*firewallPath, *authPath, logger)
	if err != nil {
		logger.Error("failed to load logs", "error", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Warn("no valid records in input", "dropped", dropped)
	}

	engine := detect.NewEngine(cfg.Detection)
	result := engine.Analyze(records).WithDropped(dropped)

	logger.Info("analysis complete",
		"analysis_id", result.AnalysisID,
		"records", result.Stats.Total,
		"suspects", len(result.Suspects),
	)

	var locations map[string]*geo.Location
	if cfg.Geo.Enabled && !*noGeo && len(result.Suspects) > 0 {
		locations = enrichSuspects(ctx, cfg, result, logger)
	}

	renderer := report.NewRenderer(cfg.Report.TopN)
	if len(locations) > 0 {
		renderer = renderer.WithLocations(locations, cfg.Geo.HighRiskCountries)
	}
	if err := renderer.Render(os.Stdout, result); err != nil {
		logger.Error("failed to render report", "error", err)
	}

	if !*noExport {
		exportResult(ctx, cfg, result, logger)
	}

	if cfg.Storage.Enabled {
		storeResult(ctx, cfg, result, logger)
	}

	if *interactive {
		if err := tui.Run(result, locations); err != nil {
			logger.Error("interactive browser failed", "error", err)
			os.Exit(1)
		}
	}
}

func applyOverrides(cfg *config.Config, bruteThreshold, bruteWindow, minPorts, scanWindow int, allActions bool, exportDir string) {
	if bruteThreshold > 0 {
		cfg.Detection.BruteForceThreshold = bruteThreshold
	}
	if bruteWindow > 0 {
		cfg.Detection.BruteForceWindowMinutes = bruteWindow
	}
	if minPorts > 0 {
		cfg.Detection.PortScanMinPorts = minPorts
	}
	if scanWindow > 0 {
		cfg.Detection.PortScanWindowMinutes = scanWindow
	}
	if allActions {
		cfg.Detection.PortScanAllActions = true
	}
	if exportDir != "" {
		cfg.Export.Directory = exportDir
	}
}

func loadRecords(firewallPath, authPath string, logger *slog.Logger) ([]schema.Record, int, error) {
	normalizer := normalize.New(logger)

	var all []schema.Record
	var dropped int

	sources := []struct {
		path string
		kind schema.Kind
	}{
		{firewallPath, schema.KindFirewall},
		{authPath, schema.KindAuthentication},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}
		rows, err := loader.LoadFile(src.path, src.kind)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", src.path, err)
		}
		records, drops := normalizer.Normalize(rows, src.kind)
		all = append(all, records...)
		dropped += drops.Total()

		logger.Info("loaded log file",
			"path", src.path,
			"kind", src.kind,
			"records", len(records),
			"dropped", drops.Total(),
		)
	}

	return normalize.SortRecords(all), dropped, nil
}

func enrichSuspects(ctx context.Context, cfg *config.Config, result *detect.Result, logger *slog.Logger) map[string]*geo.Location {
	client, err := geo.NewClient(geo.Config{
		APIURL:            cfg.Geo.APIURL,
		Timeout:           cfg.Geo.Timeout,
		RequestsPerSecond: cfg.Geo.RequestsPerSecond,
		Burst:             cfg.Geo.Burst,
		CacheSize:         cfg.Geo.CacheSize,
	}, logger)
	if err != nil {
		logger.Warn("geolocation disabled", "error", err)
		return nil
	}

	addresses := make([]string, 0, len(result.Suspects))
	for i := range result.Suspects {
		addresses = append(addresses, result.Suspects[i].Address)
	}
	return client.Enrich(ctx, addresses)
}

func exportResult(ctx context.Context, cfg *config.Config, result *detect.Result, logger *slog.Logger) {
	now := time.Now()

	csvName := cfg.Export.Filename
	if cfg.Export.AutoTimestamp {
		csvName = export.TimestampedFilename(csvName, now)
	}
	csvPath := filepath.Join(cfg.Export.Directory, csvName)
	if err := export.WriteSuspectsFile(csvPath, result); err != nil {
		logger.Error("csv export failed", "error", err)
	} else {
		logger.Info("exported suspects", "path", csvPath)
	}

	jsonName := export.TimestampedFilename("analysis.json", now)
	if !cfg.Export.AutoTimestamp {
		jsonName = "analysis.json"
	}
	jsonPath := filepath.Join(cfg.Export.Directory, jsonName)
	if err := export.WriteResultFile(jsonPath, result); err != nil {
		logger.Error("json export failed", "error", err)
	} else {
		logger.Info("exported analysis", "path", jsonPath)
	}

	if cfg.Export.S3.Enabled {
		archiver, err := storage.NewArchiver(ctx, cfg.Export.S3, logger)
		if err != nil {
			logger.Error("s3 archiver unavailable", "error", err)
			return
		}
		var buf bytes.Buffer
		if err := export.WriteSuspectsCSV(&buf, result); err != nil {
			logger.Error("s3 archive failed", "error", err)
			return
		}
		key, err := archiver.ArchiveReport(ctx, csvName, buf.Bytes(), "text/csv", now)
		if err != nil {
			logger.Error("s3 archive failed", "error", err)
			return
		}
		logger.Info("archived suspects", "key", key)
	}
}

func storeResult(ctx context.Context, cfg *config.Config, result *detect.Result, logger *slog.Logger) {
	client, err := storage.NewClickHouseClient(cfg.Storage.ClickHouse, logger)
	if err != nil {
		logger.Error("clickhouse unavailable", "error", err)
		return
	}
	defer client.Close()

	if err := client.Migrate(ctx); err != nil {
		logger.Error("clickhouse migration failed", "error", err)
		return
	}
	if err := client.StoreResult(ctx, result); err != nil {
		logger.Error("failed to store result", "error", err)
		return
	}
	logger.Info("stored analysis result", "analysis_id", result.AnalysisID)
}
