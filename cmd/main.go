package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"polytec-extractor/exporter"
	"polytec-extractor/extractor"
	"polytec-extractor/internal/types"
	"polytec-extractor/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	// Parse command line flags
	var (
		modeFlag    = flag.String("mode", "run", "Operation mode: login, index, or run")
		coloursFlag = flag.String("colours", "", "Colour index file (default: colours_index.json)")
		stateFlag   = flag.String("state", "", "Run state file (default: run_state.json)")
		outputFlag  = flag.String("output", "", "CSV output directory (default: csv)")
		cookiesFlag = flag.String("cookies", "", "Cookie file (default: cookies.json)")
		logDirFlag  = flag.String("logdir", "", "Log directory (default: logs)")
		startFlag   = flag.Int("start", 0, "Skip this many colours from the front of the index")
		limitFlag   = flag.Int("limit", 0, "Process at most this many colours (0 = all)")
		qtyFlag     = flag.Int("qty", 1, "Requested order quantity per row")
		headless    = flag.Bool("headless", true, "Run the browser headless")
		httpOnly    = flag.Bool("http-only", false, "Collect the index over plain HTTP (disable headless browser)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Create configuration
	config := types.DefaultConfig()
	config.Headless = *headless
	config.UseHeadlessBrowser = !*httpOnly
	config.Quantity = *qtyFlag
	if *coloursFlag != "" {
		config.IndexFile = *coloursFlag
	}
	if *stateFlag != "" {
		config.StateFile = *stateFlag
	}
	if *outputFlag != "" {
		config.OutputDir = *outputFlag
	}
	if *cookiesFlag != "" {
		config.CookieFile = *cookiesFlag
	}
	if *logDirFlag != "" {
		config.LogDir = *logDirFlag
	}

	// Setup logging
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Set log level from LOG_LEVEL env if present
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Mirror all output into a rotating per-run log file
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		logger.Fatalf("Failed to create log directory: %v", err)
	}
	runLog := &lumberjack.Logger{
		Filename:   filepath.Join(config.LogDir, fmt.Sprintf("%s-%s.log", *modeFlag, time.Now().Format("20060102-150405"))),
		MaxSize:    5, // megabytes
		MaxBackups: 3,
	}
	defer runLog.Close()
	logger.SetOutput(io.MultiWriter(os.Stdout, runLog))

	switch *modeFlag {
	case "login":
		runLogin(config, logger)
	case "index":
		runIndex(config, logger)
	case "run":
		runExtraction(config, logger, *startFlag, *limitFlag)
	default:
		logger.Fatalf("Unknown mode: %s (expected login, index, or run)", *modeFlag)
	}
}

func runLogin(config *types.Config, logger *logrus.Logger) {
	session, err := utils.NewSession(config, logger)
	if err != nil {
		logger.Fatalf("Failed to start browser: %v", err)
	}
	defer session.Close()

	if err := extractor.Login(session, config, logger); err != nil {
		logger.Fatalf("Login failed: %v", err)
	}
}

func runIndex(config *types.Config, logger *logrus.Logger) {
	var session *utils.Session
	if config.UseHeadlessBrowser {
		var err error
		session, err = utils.NewSession(config, logger)
		if err != nil {
			logger.Fatalf("Failed to start browser: %v", err)
		}
		defer session.Close()

		if _, err := os.Stat(config.CookieFile); err == nil {
			if err := session.LoadCookies(config.CookieFile); err != nil {
				logger.Warnf("Failed to restore session: %v", err)
			}
		}
	}

	collector := extractor.NewIndexCollector(session, config, logger)
	defer collector.Close()

	colours, err := collector.Collect(sessionCtx(session))
	if err != nil {
		logger.Fatalf("Index collection failed: %v", err)
	}
	if err := collector.Save(colours, config.IndexFile); err != nil {
		logger.Fatalf("Failed to save index: %v", err)
	}
}

func runExtraction(config *types.Config, logger *logrus.Logger, start, limit int) {
	// Fatal preconditions: a saved session and a non-empty colour index.
	if _, err := os.Stat(config.CookieFile); err != nil {
		logger.Fatalf("%s not found. Run with -mode login first.", config.CookieFile)
	}
	colours := loadColours(config.IndexFile, logger)
	if len(colours) == 0 {
		logger.Fatalf("No colours found in %s. Run with -mode index first.", config.IndexFile)
	}

	// Optional slicing for partial runs.
	if start > 0 && start < len(colours) {
		colours = colours[start:]
	}
	if limit > 0 && limit < len(colours) {
		colours = colours[:limit]
	}

	writer, err := exporter.NewRangeWriter(config.OutputDir, types.CoreFields, logger)
	if err != nil {
		logger.Fatalf("Failed to create CSV writer: %v", err)
	}
	state := exporter.LoadRunState(config.StateFile)
	if state.Count() > 0 {
		logger.Infof("Resuming: %d colours already done", state.Count())
	}

	session, err := utils.NewSession(config, logger)
	if err != nil {
		logger.Fatalf("Failed to start browser: %v", err)
	}
	defer session.Close()
	if err := session.LoadCookies(config.CookieFile); err != nil {
		logger.Fatalf("Failed to restore session: %v", err)
	}

	e := extractor.NewColourExtractor(session, writer, state, config, logger)
	if err := e.ExtractAll(session.Ctx(), colours); err != nil {
		logger.Fatalf("Extraction failed: %v", err)
	}
}

func loadColours(path string, logger *logrus.Logger) []types.Colour {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Fatalf("%s not found. Run with -mode index first.", path)
	}
	var colours []types.Colour
	if err := json.Unmarshal(data, &colours); err != nil {
		logger.Fatalf("Failed to parse %s: %v", path, err)
	}
	return colours
}

func sessionCtx(session *utils.Session) context.Context {
	if session != nil {
		return session.Ctx()
	}
	return context.Background()
}
