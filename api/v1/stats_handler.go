package v1

import (
	"math"

	"github.com/gofiber/fiber/v2"

	"pagebeam/internal/pkg/async"
	"pagebeam/internal/storage"
)

// Summary is the headline block of the stats payload. TotalUniqueVisitors is
// a true distinct session count over the window, not a per-day maximum.
type Summary struct {
	TotalPageViews      int `json:"totalPageViews"`
	TotalUniqueVisitors int `json:"totalUniqueVisitors"`
	AvgDailyViews       int `json:"avgDailyViews"`
}

// StatsResponse is the combined dashboard payload.
type StatsResponse struct {
	Summary       Summary                `json:"summary"`
	DailyStats    []storage.DailyStat    `json:"dailyStats"`
	CountryStats  []storage.CountryStat  `json:"countryStats"`
	TopPages      []storage.PageStat     `json:"topPages"`
	BrowserStats  []storage.BrowserStat  `json:"browserStats"`
	DeviceStats   []storage.DeviceStat   `json:"deviceStats"`
	ReferrerStats []storage.ReferrerStat `json:"referrerStats"`
}

func emptyStatsResponse() StatsResponse {
	return StatsResponse{
		DailyStats:    []storage.DailyStat{},
		CountryStats:  []storage.CountryStat{},
		TopPages:      []storage.PageStat{},
		BrowserStats:  []storage.BrowserStat{},
		DeviceStats:   []storage.DeviceStat{},
		ReferrerStats: []storage.ReferrerStat{},
	}
}

// Stats handles GET /api/analytics/stats. The six rollups run concurrently,
// each independently guarded with an empty fallback, so a partially failing
// store still yields a usable payload.
func (h *Handler) Stats(c *fiber.Ctx) error {
	if !h.Guard.Configured() {
		return c.JSON(emptyStatsResponse())
	}

	guard := h.Guard
	tasks := []async.Task{
		{Name: "dailyStats", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, []storage.DailyStat{}, func(s storage.Store) ([]storage.DailyStat, error) {
				return s.DailyStats()
			}), nil
		}},
		{Name: "countryStats", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, []storage.CountryStat{}, func(s storage.Store) ([]storage.CountryStat, error) {
				return s.CountryStats()
			}), nil
		}},
		{Name: "topPages", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, []storage.PageStat{}, func(s storage.Store) ([]storage.PageStat, error) {
				return s.TopPages()
			}), nil
		}},
		{Name: "browserStats", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, []storage.BrowserStat{}, func(s storage.Store) ([]storage.BrowserStat, error) {
				return s.BrowserStats()
			}), nil
		}},
		{Name: "deviceStats", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, []storage.DeviceStat{}, func(s storage.Store) ([]storage.DeviceStat, error) {
				return s.DeviceStats()
			}), nil
		}},
		{Name: "referrerStats", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, []storage.ReferrerStat{}, func(s storage.Store) ([]storage.ReferrerStat, error) {
				return s.ReferrerStats()
			}), nil
		}},
		{Name: "uniqueVisitors", Execute: func() (interface{}, error) {
			return storage.RunOrFallback(guard, int64(0), func(s storage.Store) (int64, error) {
				return s.UniqueVisitorCount()
			}), nil
		}},
	}

	pool := async.NewPool(len(tasks))
	results := pool.Execute(c.Context(), tasks)

	resp := emptyStatsResponse()
	if r, ok := results["dailyStats"]; ok {
		resp.DailyStats = r.Data.([]storage.DailyStat)
	}
	if r, ok := results["countryStats"]; ok {
		resp.CountryStats = r.Data.([]storage.CountryStat)
	}
	if r, ok := results["topPages"]; ok {
		resp.TopPages = r.Data.([]storage.PageStat)
	}
	if r, ok := results["browserStats"]; ok {
		resp.BrowserStats = r.Data.([]storage.BrowserStat)
	}
	if r, ok := results["deviceStats"]; ok {
		resp.DeviceStats = r.Data.([]storage.DeviceStat)
	}
	if r, ok := results["referrerStats"]; ok {
		resp.ReferrerStats = r.Data.([]storage.ReferrerStat)
	}

	var uniqueVisitors int64
	if r, ok := results["uniqueVisitors"]; ok {
		uniqueVisitors = r.Data.(int64)
	}

	totalPageViews := 0
	for _, day := range resp.DailyStats {
		totalPageViews += day.PageViews
	}
	daysWithData := len(resp.DailyStats)
	if daysWithData == 0 {
		daysWithData = 1
	}

	resp.Summary = Summary{
		TotalPageViews:      totalPageViews,
		TotalUniqueVisitors: int(uniqueVisitors),
		AvgDailyViews:       int(math.Round(float64(totalPageViews) / float64(daysWithData))),
	}

	// The daily query returns newest-first; charts want chronological order.
	reverseDailyStats(resp.DailyStats)

	return c.JSON(resp)
}

func reverseDailyStats(stats []storage.DailyStat) {
	for i, j := 0, len(stats)-1; i < j; i, j = i+1, j-1 {
		stats[i], stats[j] = stats[j], stats[i]
	}
}
