package adapters

import (
	"context"
	"sync"
	"time"

	"polytec-extractor/internal/types"
)

// fakeRow scripts one row's behaviour: successive attempt results are
// consumed front to back, and an empty queue reads as "".
type fakeRow struct {
	code     string
	minAttr  string
	stepAttr string
	warning  string
	specs    *RowSpecs
	family   string

	stockQueue []string
	priceQueue []string
	stockErr   error
	triggerOK  bool
}

type fakePanel struct {
	finish string
	rows   []*fakeRow
}

// fakeDriver is an in-memory PageDriver for exercising the interaction
// protocol without a browser. The two lookups run concurrently, so
// anything they touch is guarded by mu.
type fakeDriver struct {
	colourName string
	tabs       []TabInfo
	panels     map[string]*fakePanel
	active     string
	openErr    error

	mu           sync.Mutex
	openedURLs   []string
	qtySet       []int
	overlayCalls int
	clearCalls   int
	triggerCalls int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{panels: make(map[string]*fakePanel)}
}

func (f *fakeDriver) panel() *fakePanel {
	if p, ok := f.panels[f.active]; ok {
		return p
	}
	return &fakePanel{}
}

func (f *fakeDriver) row(i int) *fakeRow {
	rows := f.panel().rows
	if i < 0 || i >= len(rows) {
		return &fakeRow{}
	}
	return rows[i]
}

func (f *fakeDriver) ScrollIntoView(ctx context.Context, row int) {}

func (f *fakeDriver) Code(ctx context.Context, row int) string { return f.row(row).code }

func (f *fakeDriver) QuantityHints(ctx context.Context, row int) (string, string) {
	r := f.row(row)
	return r.minAttr, r.stepAttr
}

func (f *fakeDriver) WarningText(ctx context.Context, row int) string { return f.row(row).warning }

func (f *fakeDriver) SetQuantity(ctx context.Context, row int, qty int) bool {
	f.qtySet = append(f.qtySet, qty)
	return true
}

func (f *fakeDriver) ClearResult(ctx context.Context, row int, kind Lookup) { f.clearCalls++ }

func (f *fakeDriver) Trigger(ctx context.Context, row int, kind Lookup) bool {
	f.mu.Lock()
	f.triggerCalls++
	f.mu.Unlock()
	return f.row(row).triggerOK
}

func (f *fakeDriver) ResultText(ctx context.Context, row int, kind Lookup, maxWait time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.row(row)
	if kind == LookupStock {
		if r.stockErr != nil {
			return "", r.stockErr
		}
		if len(r.stockQueue) == 0 {
			return "", nil
		}
		text := r.stockQueue[0]
		r.stockQueue = r.stockQueue[1:]
		return text, nil
	}
	if len(r.priceQueue) == 0 {
		return "", nil
	}
	text := r.priceQueue[0]
	r.priceQueue = r.priceQueue[1:]
	return text, nil
}

func (f *fakeDriver) Correlate(ctx context.Context, code string, timeout time.Duration, act func()) {
	act()
}

func (f *fakeDriver) DismissOverlays(ctx context.Context) { f.overlayCalls++ }

func (f *fakeDriver) Open(ctx context.Context, url string) error {
	f.openedURLs = append(f.openedURLs, url)
	return f.openErr
}

func (f *fakeDriver) ColourName(ctx context.Context) string { return f.colourName }

func (f *fakeDriver) Tabs(ctx context.Context) []TabInfo { return f.tabs }

func (f *fakeDriver) ActivateTab(ctx context.Context, tab TabInfo) error {
	f.active = tab.Label
	return nil
}

func (f *fakeDriver) PanelFinish(ctx context.Context) string { return f.panel().finish }

func (f *fakeDriver) RowFamilies(ctx context.Context) []string {
	families := make([]string, len(f.panel().rows))
	for i, r := range f.panel().rows {
		families[i] = r.family
	}
	return families
}

func (f *fakeDriver) RowSpecs(ctx context.Context, row int) *RowSpecs { return f.row(row).specs }

// fakeSink collects appended records in order.
type fakeSink struct {
	ranges []string
	cores  []map[string]string
	specs  [][]types.KV
}

func (s *fakeSink) Append(rec types.Record) error {
	s.ranges = append(s.ranges, rec.Family)
	s.cores = append(s.cores, rec.Core)
	s.specs = append(s.specs, rec.Specs)
	return nil
}
