package storage

import (
	"fmt"
	"sort"
	"time"

	"pagebeam/internal/pkg/referrers"
)

// rollupWindowDays is the trailing horizon every dashboard read is scoped to.
const rollupWindowDays = 30

const (
	countryStatsLimit = 20
	topPagesLimit     = 20
	browserStatsLimit = 10
)

func windowStart() time.Time {
	return time.Now().UTC().AddDate(0, 0, -rollupWindowDays)
}

// dateExpr returns the dialect's expression for bucketing a timestamp into a
// calendar date string.
func (s *GormStore) dateExpr() string {
	if s.db.Dialector.Name() == "postgres" {
		return "TO_CHAR(timestamp, 'YYYY-MM-DD')"
	}
	return "DATE(timestamp)"
}

// DailyStats groups page views by calendar date, newest first. The stats
// endpoint reverses the series for chronological charting.
func (s *GormStore) DailyStats() ([]DailyStat, error) {
	expr := s.dateExpr()
	query := fmt.Sprintf(`
		SELECT
			%s AS date,
			COUNT(*) AS page_views,
			COUNT(DISTINCT session_id) AS unique_visitors
		FROM page_views
		WHERE timestamp >= ?
		GROUP BY %s
		ORDER BY date DESC
	`, expr, expr)

	results := []DailyStat{}
	if err := s.db.Raw(query, windowStart()).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to fetch daily stats: %w", err)
	}
	return results, nil
}

// CountryStats groups page views by resolved country, busiest first.
func (s *GormStore) CountryStats() ([]CountryStat, error) {
	query := `
		SELECT
			country,
			COUNT(*) AS visits,
			COUNT(DISTINCT session_id) AS unique_visitors
		FROM page_views
		WHERE timestamp >= ? AND country <> ''
		GROUP BY country
		ORDER BY visits DESC
		LIMIT ?
	`

	results := []CountryStat{}
	if err := s.db.Raw(query, windowStart(), countryStatsLimit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to fetch country stats: %w", err)
	}
	return results, nil
}

// TopPages groups page views by path, most viewed first.
func (s *GormStore) TopPages() ([]PageStat, error) {
	query := `
		SELECT
			path,
			COUNT(*) AS views,
			COUNT(DISTINCT session_id) AS unique_visitors
		FROM page_views
		WHERE timestamp >= ?
		GROUP BY path
		ORDER BY views DESC
		LIMIT ?
	`

	results := []PageStat{}
	if err := s.db.Raw(query, windowStart(), topPagesLimit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to fetch top pages: %w", err)
	}
	return results, nil
}

// BrowserStats groups page views by browser family, busiest first.
func (s *GormStore) BrowserStats() ([]BrowserStat, error) {
	query := `
		SELECT
			browser,
			COUNT(*) AS visits,
			COUNT(DISTINCT session_id) AS unique_visitors
		FROM page_views
		WHERE timestamp >= ? AND browser <> ''
		GROUP BY browser
		ORDER BY visits DESC
		LIMIT ?
	`

	results := []BrowserStat{}
	if err := s.db.Raw(query, windowStart(), browserStatsLimit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to fetch browser stats: %w", err)
	}
	return results, nil
}

// DeviceStats groups page views by device family, busiest first. The device
// enum is small, so the result is uncapped.
func (s *GormStore) DeviceStats() ([]DeviceStat, error) {
	query := `
		SELECT
			device_type,
			COUNT(*) AS visits,
			COUNT(DISTINCT session_id) AS unique_visitors
		FROM page_views
		WHERE timestamp >= ? AND device_type <> ''
		GROUP BY device_type
		ORDER BY visits DESC
	`

	results := []DeviceStat{}
	if err := s.db.Raw(query, windowStart()).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to fetch device stats: %w", err)
	}
	return results, nil
}

// ReferrerStats buckets every page view in the window by traffic source.
// Classification happens row-by-row in Go so the catalog in the referrers
// package stays the single source of truth, and distinct visitors are counted
// per bucket rather than per raw referrer.
func (s *GormStore) ReferrerStats() ([]ReferrerStat, error) {
	query := `
		SELECT referrer, session_id
		FROM page_views
		WHERE timestamp >= ?
	`

	var rows []struct {
		Referrer  string
		SessionID string
	}
	if err := s.db.Raw(query, windowStart()).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to fetch referrer rows: %w", err)
	}

	visits := make(map[string]int)
	sessions := make(map[string]map[string]struct{})
	for _, row := range rows {
		source := referrers.Classify(row.Referrer)
		visits[source]++
		if sessions[source] == nil {
			sessions[source] = make(map[string]struct{})
		}
		sessions[source][row.SessionID] = struct{}{}
	}

	results := make([]ReferrerStat, 0, len(visits))
	for source, count := range visits {
		results = append(results, ReferrerStat{
			Source:         source,
			Visits:         count,
			UniqueVisitors: len(sessions[source]),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Visits != results[j].Visits {
			return results[i].Visits > results[j].Visits
		}
		return results[i].Source < results[j].Source
	})
	return results, nil
}

// UniqueVisitorCount counts distinct sessions across the whole window.
func (s *GormStore) UniqueVisitorCount() (int64, error) {
	query := `
		SELECT COUNT(DISTINCT session_id)
		FROM page_views
		WHERE timestamp >= ?
	`

	var count int64
	if err := s.db.Raw(query, windowStart()).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("storage: failed to count unique visitors: %w", err)
	}
	return count, nil
}
