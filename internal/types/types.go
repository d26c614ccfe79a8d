package types

import "time"

// Colour is one entry of the colour index: a catalog page to visit.
type Colour struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Slug string `json:"slug"`
}

// KV is a single free-form attribute. Attributes are kept as an ordered
// slice rather than a map because column order in the CSV output follows
// first-discovery order.
type KV struct {
	Key   string
	Value string
}

// Record is the persisted outcome of one row's interaction. Core holds the
// fixed identifying fields keyed by CoreFields; Specs holds the normalized
// free-form attributes. Records are immutable once handed to the sink.
type Record struct {
	Family string
	Core   map[string]string
	Specs  []KV
}

// CoreFields is the fixed column set of every output CSV, in order.
var CoreFields = []string{
	"colour_name",
	"finish",
	"product_family",
	"sku_code",
	"title_raw",
	"qty_used_for_checks",
	"stock_result_raw",
	"price_result_raw",
	"product_url",
	"checked_at_iso",
}

// Config holds the configuration for the extractor
type Config struct {
	// Site endpoints.
	BaseURL    string
	ColoursURL string
	LoginURL   string

	// Browser session.
	Headless  bool
	UserAgent string

	// Per-operation budgets. Every wait in the interaction core is bounded
	// by one of these; nothing blocks indefinitely.
	NavTimeout       time.Duration // page navigation + tab container
	PanelTimeout     time.Duration // tab panel becoming active
	ClickTimeout     time.Duration // forced click before falling back
	HandleTimeout    time.Duration // short-lived element handle acquisition
	ResultWait       time.Duration // result text becoming non-empty
	RetryResultWait  time.Duration // shorter bound for the last-chance round
	CorrelateTimeout time.Duration // network response matching the row code
	ReadTimeout      time.Duration // one immediate text read

	TabRetries int // forced-click attempts when activating a tab
	Quantity   int // requested order quantity per row

	// Files and directories.
	CookieFile string
	IndexFile  string
	StateFile  string
	OutputDir  string
	LogDir     string

	// HTTP fallback client (index collection without a browser).
	UseHeadlessBrowser bool
	RequestDelay       time.Duration
	MaxRetries         int
	Timeout            time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://www.polytec.com.au/",
		ColoursURL: "https://www.polytec.com.au/colours/",
		LoginURL:   "https://www.polytec.com.au/login.php",

		Headless:  true,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		NavTimeout:       6 * time.Second,
		PanelTimeout:     3 * time.Second,
		ClickTimeout:     700 * time.Millisecond,
		HandleTimeout:    500 * time.Millisecond,
		ResultWait:       1200 * time.Millisecond,
		RetryResultWait:  600 * time.Millisecond,
		CorrelateTimeout: 1200 * time.Millisecond,
		ReadTimeout:      300 * time.Millisecond,

		TabRetries: 3,
		Quantity:   1,

		CookieFile: "cookies.json",
		IndexFile:  "colours_index.json",
		StateFile:  "run_state.json",
		OutputDir:  "csv",
		LogDir:     "logs",

		UseHeadlessBrowser: true,
		RequestDelay:       1 * time.Second,
		MaxRetries:         3,
		Timeout:            30 * time.Second,
	}
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
