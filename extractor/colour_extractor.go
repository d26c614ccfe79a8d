package extractor

import (
	"context"
	"time"

	"polytec-extractor/adapters"
	"polytec-extractor/exporter"
	"polytec-extractor/internal/types"
	"polytec-extractor/utils"
)

// ColourExtractor iterates the colour index and runs the page walker on
// every entry not yet completed. A colour that fails is logged and left
// unmarked so the next run retries it; the loop itself never aborts on a
// per-colour failure.
type ColourExtractor struct {
	session *utils.Session
	driver  *adapters.ChromeDriver
	writer  *exporter.RangeWriter
	state   *exporter.RunState
	config  *types.Config
	logger  types.Logger
}

// NewColourExtractor creates an extractor over an authenticated session.
func NewColourExtractor(session *utils.Session, writer *exporter.RangeWriter, state *exporter.RunState, config *types.Config, logger types.Logger) *ColourExtractor {
	return &ColourExtractor{
		session: session,
		driver:  adapters.NewChromeDriver(config, logger),
		writer:  writer,
		state:   state,
		config:  config,
		logger:  logger,
	}
}

// ExtractAll processes every colour in order. The (finish, sku) dedup set
// spans the whole run.
func (e *ColourExtractor) ExtractAll(ctx context.Context, colours []types.Colour) error {
	startTime := time.Now()
	total := len(colours)
	e.logger.Infof("Starting run across %d colours", total)

	seen := make(map[string]bool)
	walker := adapters.NewWalker(e.driver, e.writer, seen, e.config, e.logger)

	writtenRows := 0
	completed := 0
	for i, colour := range colours {
		if e.state.IsDone(colour.URL) {
			e.logger.Infof("[%d/%d] Skip, already done, %s", i+1, total, colour.Name)
			continue
		}

		e.logger.Infof("[%d/%d] Processing %s  %s", i+1, total, colour.Name, colour.URL)
		rows, err := walker.ProcessColour(ctx, colour)
		writtenRows += rows
		if err != nil {
			// Keep going; the colour stays unmarked and is retried on the
			// next run.
			e.logger.Errorf("[%d/%d] Error on %s: %v", i+1, total, colour.Name, err)
			continue
		}

		if err := e.state.MarkDone(colour.URL); err != nil {
			e.logger.Warnf("[%d/%d] Failed to persist run state: %v", i+1, total, err)
		}
		completed++
		e.logger.Infof("[%d/%d] Done %s, rows=%d", i+1, total, colour.Name, rows)
	}

	e.logger.Infof("All colours complete in %v. Colours done=%d/%d, rows written=%d",
		time.Since(startTime).Round(time.Second), completed, total, writtenRows)
	return nil
}
