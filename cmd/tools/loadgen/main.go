// main.go - Beacon load generator for pagebeam
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	v1 "pagebeam/api/v1"
)

// LoadConfig holds the configuration for the load test
type LoadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Rate        int
	Timeout     time.Duration
}

// LoadStats aggregates per-request results
type LoadStats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalLatency       int64
	MinLatency         time.Duration
	MaxLatency         time.Duration
	StatusCodes        map[int]int64
	StatusCodesMutex   sync.Mutex
	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.Mutex
	StartTime          time.Time
	EndTime            time.Time
}

// Result captures the result of a single request
type Result struct {
	Duration   time.Duration
	StatusCode int
	Error      error
}

var samplePaths = []string{
	"/",
	"/blog",
	"/blog/go-concurrency",
	"/about",
	"/projects",
	"/contact",
	"/pricing",
}

var sampleReferrers = []string{
	"",
	"",
	"https://www.google.com/search?q=pagebeam",
	"https://t.co/abc123",
	"https://news.ycombinator.com/item?id=1",
	"https://www.linkedin.com/feed/",
	"https://duckduckgo.com/",
}

var sampleUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36",
}

var sampleResolutions = []string{"1920x1080", "1440x900", "2560x1440", "390x844", "820x1180"}

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "Base URL of the API")
	concurrency := flag.Int("c", 10, "Number of concurrent simulated visitors")
	duration := flag.Duration("d", 30*time.Second, "Duration of the test")
	rate := flag.Int("rate", 0, "Target beacons per second (0 = unlimited)")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	config := &LoadConfig{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Rate:        *rate,
		Timeout:     *timeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), config.Duration)
	defer cancel()

	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig.String()).Info("Shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"url":         config.BaseURL,
		"concurrency": config.Concurrency,
		"duration":    config.Duration.String(),
		"rate":        config.Rate,
	}).Info("Starting beacon load test")

	stats := &LoadStats{
		StatusCodes: make(map[int]int64),
		StartTime:   time.Now(),
	}

	for result := range runTest(ctx, config, logger) {
		processResult(result, stats)
	}

	stats.EndTime = time.Now()
	printResults(stats)
}

// runTest fans out one goroutine per simulated visitor. Each visitor keeps
// the session id returned by the first beacon so later views exercise the
// session-continuity path.
func runTest(ctx context.Context, config *LoadConfig, logger *logrus.Logger) <-chan Result {
	resultChan := make(chan Result, config.Concurrency*10)
	var wg sync.WaitGroup

	perWorkerRate := 0.0
	if config.Rate > 0 {
		perWorkerRate = float64(config.Rate) / float64(config.Concurrency)
	}

	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{Timeout: config.Timeout}
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
			userAgent := sampleUserAgents[rng.Intn(len(sampleUserAgents))]
			sessionID := "new"

			var ticker *time.Ticker
			if perWorkerRate > 0 {
				ticker = time.NewTicker(time.Duration(float64(time.Second) / perWorkerRate))
				defer ticker.Stop()
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if ticker != nil {
						select {
						case <-ticker.C:
						case <-ctx.Done():
							return
						}
					}

					result, newSessionID := sendBeacon(client, config, rng, userAgent, sessionID, logger)
					if newSessionID != "" {
						sessionID = newSessionID
					}
					resultChan <- result
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan
}

// sendBeacon posts one page view and returns the session id the server minted.
func sendBeacon(client *http.Client, config *LoadConfig, rng *rand.Rand, userAgent, sessionID string, logger *logrus.Logger) (Result, string) {
	params := v1.TrackParams{
		Path:             samplePaths[rng.Intn(len(samplePaths))],
		Referrer:         sampleReferrers[rng.Intn(len(sampleReferrers))],
		SessionID:        sessionID,
		ScreenResolution: sampleResolutions[rng.Intn(len(sampleResolutions))],
	}

	jsonData, err := json.Marshal(params)
	if err != nil {
		return Result{Error: fmt.Errorf("failed to marshal JSON: %w", err)}, ""
	}

	req, err := http.NewRequest(http.MethodPost, config.BaseURL+"/api/analytics", bytes.NewBuffer(jsonData))
	if err != nil {
		return Result{Error: fmt.Errorf("failed to create request: %w", err)}, ""
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return Result{Duration: duration, Error: fmt.Errorf("request failed: %w", err)}, ""
	}
	defer resp.Body.Close()

	var nextSessionID string
	if resp.StatusCode == http.StatusOK {
		var body struct {
			Success   bool   `json:"success"`
			SessionID string `json:"sessionId"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			nextSessionID = body.SessionID
		}
	} else {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(bodyBytes),
		}).Debug("Beacon rejected")
	}

	return Result{Duration: duration, StatusCode: resp.StatusCode}, nextSessionID
}

func processResult(result Result, stats *LoadStats) {
	atomic.AddInt64(&stats.TotalRequests, 1)

	if result.Error != nil {
		atomic.AddInt64(&stats.FailedRequests, 1)
		return
	}

	stats.ResponseTimesMutex.Lock()
	stats.ResponseTimes = append(stats.ResponseTimes, result.Duration)
	stats.ResponseTimesMutex.Unlock()

	stats.StatusCodesMutex.Lock()
	stats.StatusCodes[result.StatusCode]++
	stats.StatusCodesMutex.Unlock()

	if result.StatusCode == http.StatusOK {
		atomic.AddInt64(&stats.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&stats.FailedRequests, 1)
	}

	atomic.AddInt64(&stats.TotalLatency, int64(result.Duration))

	if stats.MinLatency == 0 || result.Duration < stats.MinLatency {
		stats.MinLatency = result.Duration
	}
	if result.Duration > stats.MaxLatency {
		stats.MaxLatency = result.Duration
	}
}

func printResults(stats *LoadStats) {
	totalDuration := stats.EndTime.Sub(stats.StartTime)
	rps := float64(stats.TotalRequests) / totalDuration.Seconds()

	var avgLatency time.Duration
	if stats.TotalRequests > 0 {
		avgLatency = time.Duration(stats.TotalLatency / stats.TotalRequests)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\n%s\t%s\n", "METRIC", "VALUE")
	fmt.Fprintf(w, "%s\t%s\n", "------", "-----")
	fmt.Fprintf(w, "Test Duration\t%v\n", totalDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Requests\t%d\n", stats.TotalRequests)
	if stats.TotalRequests > 0 {
		fmt.Fprintf(w, "Successful Requests\t%d (%.2f%%)\n", stats.SuccessfulRequests, 100*float64(stats.SuccessfulRequests)/float64(stats.TotalRequests))
		fmt.Fprintf(w, "Failed Requests\t%d (%.2f%%)\n", stats.FailedRequests, 100*float64(stats.FailedRequests)/float64(stats.TotalRequests))
	}
	fmt.Fprintf(w, "Requests Per Second\t%.2f\n", rps)
	fmt.Fprintf(w, "Min Latency\t%v\n", stats.MinLatency)
	fmt.Fprintf(w, "Max Latency\t%v\n", stats.MaxLatency)
	fmt.Fprintf(w, "Avg Latency\t%v\n", avgLatency)
	w.Flush()

	if len(stats.ResponseTimes) > 0 {
		sort.Slice(stats.ResponseTimes, func(i, j int) bool {
			return stats.ResponseTimes[i] < stats.ResponseTimes[j]
		})
		total := len(stats.ResponseTimes)
		fmt.Fprintf(w, "\n%s\t%s\n", "PERCENTILE", "VALUE (ms)")
		fmt.Fprintf(w, "%s\t%s\n", "----------", "----------")
		fmt.Fprintf(w, "50th (Median)\t%d\n", stats.ResponseTimes[total/2].Milliseconds())
		fmt.Fprintf(w, "90th\t%d\n", stats.ResponseTimes[total*9/10].Milliseconds())
		fmt.Fprintf(w, "99th\t%d\n", stats.ResponseTimes[total*99/100].Milliseconds())
		w.Flush()
	}

	if len(stats.StatusCodes) > 0 {
		fmt.Println("\nStatus Code Distribution:")
		var codes []int
		for code := range stats.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		var maxCount int64 = 1
		for _, count := range stats.StatusCodes {
			if count > maxCount {
				maxCount = count
			}
		}

		const maxBarLength = 50
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\t%s\n", "STATUS CODE", "COUNT", "GRAPH")
		fmt.Fprintf(w, "%s\t%s\t%s\n", "-----------", "-----", "-----")
		for _, code := range codes {
			count := stats.StatusCodes[code]
			barLength := int(float64(count) / float64(maxCount) * maxBarLength)
			fmt.Fprintf(w, "%d\t%d\t%s\n", code, count, strings.Repeat("█", barLength))
		}
		w.Flush()
	}
}
