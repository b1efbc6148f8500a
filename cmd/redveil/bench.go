package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"redveil/pkg/cli"
)

var benchFlags struct {
	target      string
	path        string
	duration    time.Duration
	rate        int
	concurrency int
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load test a running relay",
	Long: `Send a steady stream of requests to a running relay instance and
report latency percentiles, throughput, and status code distribution.

The default probe path is /health, which exercises the full middleware
chain without touching upstream. Point --path at a media route to load
test streaming instead; mind the upstream traffic that generates.

Examples:
  # Probe a local instance
  redveil bench

  # Higher load against a remote instance
  redveil bench --target http://relay.internal:8080 --duration 60s --rate 100 --concurrency 10

  # Load test a media route
  redveil bench --path /img/it/abc123.png --rate 5`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVar(&benchFlags.target, "target", "http://localhost:8080", "relay URL")
	benchCmd.Flags().StringVar(&benchFlags.path, "path", "/health", "request path")
	benchCmd.Flags().DurationVar(&benchFlags.duration, "duration", 30*time.Second, "test duration")
	benchCmd.Flags().IntVar(&benchFlags.rate, "rate", 10, "requests per second")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 4, "concurrent clients")
}

func runBench(cmd *cobra.Command, args []string) error {
	url := benchFlags.target + benchFlags.path

	fmt.Println("Redveil Bench")
	fmt.Println("=============")
	fmt.Printf("Target: %s\n", url)
	fmt.Printf("Duration: %s\n", benchFlags.duration)
	fmt.Printf("Rate: %d req/s\n", benchFlags.rate)
	fmt.Printf("Concurrency: %d\n", benchFlags.concurrency)
	fmt.Println()

	totalRequests := int(benchFlags.duration.Seconds()) * benchFlags.rate
	if totalRequests < 1 {
		return fmt.Errorf("duration %s at %d req/s yields no requests", benchFlags.duration, benchFlags.rate)
	}

	fmt.Println("Running...")
	fmt.Println()

	results := runLoadTest(url, totalRequests)
	displayBenchResults(results)

	return nil
}

type benchResults struct {
	totalRequests int
	failed        int
	duration      time.Duration
	latencies     []time.Duration
	statuses      map[int]int
}

func runLoadTest(url string, totalRequests int) *benchResults {
	results := &benchResults{
		totalRequests: totalRequests,
		latencies:     make([]time.Duration, 0, totalRequests),
		statuses:      make(map[int]int),
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// Cut the run off at the configured duration plus slack for
	// in-flight requests.
	ctx, cancel := context.WithTimeout(context.Background(), benchFlags.duration+15*time.Second)
	defer cancel()

	progress := cli.NewProgressReporter(nil)
	progress.Start(int64(totalRequests))

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)

	jobs := make(chan struct{})
	for i := 0; i < benchFlags.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err == nil {
					var resp *http.Response
					resp, err = client.Do(req)
					if err == nil {
						_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
						resp.Body.Close()
					}
					latency := time.Since(start)

					mu.Lock()
					if err != nil {
						results.failed++
					} else {
						results.statuses[resp.StatusCode]++
						results.latencies = append(results.latencies, latency)
					}
					done++
					progress.Update(int64(done))
					mu.Unlock()
				}
			}
		}()
	}

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(benchFlags.rate))
	defer ticker.Stop()

	sent := 0
send:
	for sent < totalRequests {
		select {
		case <-ctx.Done():
			break send
		case <-ticker.C:
			select {
			case jobs <- struct{}{}:
				sent++
			case <-ctx.Done():
				break send
			}
		}
	}
	close(jobs)
	wg.Wait()
	progress.Finish()

	results.duration = time.Since(start)
	return results
}

func displayBenchResults(results *benchResults) {
	completed := len(results.latencies)

	fmt.Println()
	fmt.Println("Results:")
	fmt.Println("--------")
	fmt.Printf("Requests:        %d total, %d completed, %d failed\n",
		results.totalRequests, completed, results.failed)
	fmt.Printf("Duration:        %.1fs\n", results.duration.Seconds())

	if completed > 0 {
		throughput := float64(completed) / results.duration.Seconds()
		fmt.Printf("Throughput:      %.2f req/s\n", throughput)

		min, mean, median, p95, p99, max := latencyPercentiles(results.latencies)
		fmt.Println()
		fmt.Println("Latency:")
		fmt.Printf("  Min:     %.1fms\n", float64(min.Microseconds())/1000)
		fmt.Printf("  Mean:    %.1fms\n", float64(mean.Microseconds())/1000)
		fmt.Printf("  Median:  %.1fms\n", float64(median.Microseconds())/1000)
		fmt.Printf("  p95:     %.1fms\n", float64(p95.Microseconds())/1000)
		fmt.Printf("  p99:     %.1fms\n", float64(p99.Microseconds())/1000)
		fmt.Printf("  Max:     %.1fms\n", float64(max.Microseconds())/1000)
	}

	if len(results.statuses) > 0 || results.failed > 0 {
		codes := make([]int, 0, len(results.statuses))
		for code := range results.statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		fmt.Println()
		fmt.Println("Status Codes:")
		for _, code := range codes {
			count := results.statuses[code]
			fmt.Printf("  %d:     %d (%.0f%%)\n", code, count,
				float64(count)/float64(results.totalRequests)*100)
		}
		if results.failed > 0 {
			fmt.Printf("  Errors:  %d (%.0f%%)\n", results.failed,
				float64(results.failed)/float64(results.totalRequests)*100)
		}
	}
}

func latencyPercentiles(latencies []time.Duration) (min, mean, median, p95, p99, max time.Duration) {
	if len(latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, lat := range sorted {
		sum += lat
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]
	p95 = sorted[percentileIndex(len(sorted), 0.95)]
	p99 = sorted[percentileIndex(len(sorted), 0.99)]

	return
}

// percentileIndex clamps the rank so small samples stay in bounds.
func percentileIndex(n int, q float64) int {
	i := int(float64(n) * q)
	if i >= n {
		i = n - 1
	}
	return i
}
