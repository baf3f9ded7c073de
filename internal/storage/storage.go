// Package storage owns the durable tables of the analytics pipeline and the
// read-side rollup queries the dashboard consumes.
//
// A single Store interface covers every backend; degraded operation is a
// decorator over it (see Guard), not a separate implementation.
package storage

// DailyStat is one calendar day of traffic within the rollup window.
type DailyStat struct {
	Date           string `json:"date"`
	PageViews      int    `json:"page_views"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// CountryStat is the visit count for one resolved country.
type CountryStat struct {
	Country        string `json:"country"`
	Visits         int    `json:"visits"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// PageStat is the view count for one tracked path.
type PageStat struct {
	Path           string `json:"path"`
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// BrowserStat is the visit count for one browser family.
type BrowserStat struct {
	Browser        string `json:"browser"`
	Visits         int    `json:"visits"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// DeviceStat is the visit count for one device family.
type DeviceStat struct {
	DeviceType     string `json:"device_type"`
	Visits         int    `json:"visits"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// ReferrerStat is the visit count for one classified traffic source.
type ReferrerStat struct {
	Source         string `json:"source"`
	Visits         int    `json:"visits"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// Store is the full capability set of the durable store: schema management,
// the two write surfaces and the rollup reads. All reads are scoped to the
// trailing 30-day window and recomputed on every call.
type Store interface {
	// InitSchema creates the tables and indexes. Idempotent: safe to call on
	// every process start.
	InitSchema() error

	// InsertPageView appends one page view and returns its store-assigned id.
	// A zero Timestamp defaults to the current time.
	InsertPageView(view *PageView) (uint, error)

	// UpsertSession inserts or, on id conflict, refreshes a session row.
	UpsertSession(id string, pageCount int, ipAddress, userAgent string) error

	// TouchSession increments the page count and refreshes updated_at for an
	// existing session. Unknown ids are a no-op, not an error.
	TouchSession(id string) error

	DailyStats() ([]DailyStat, error)
	CountryStats() ([]CountryStat, error)
	TopPages() ([]PageStat, error)
	BrowserStats() ([]BrowserStat, error)
	DeviceStats() ([]DeviceStat, error)
	ReferrerStats() ([]ReferrerStat, error)

	// UniqueVisitorCount returns the distinct session count across the whole
	// rollup window.
	UniqueVisitorCount() (int64, error)
}
