// Command fare-loadgen replays a skewed mix of fare requests against a
// running fare server and reports what the server did with them.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Config struct {
	BaseURL     string
	Endpoint    string
	Workers     int
	Duration    time.Duration
	ZipfS       float64
	PoolSize    int
	Out         string
	Timeout     time.Duration
	TopRoutes   int
	SamplesFile bool
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8090", "fare server base URL")
	flag.StringVar(&cfg.Endpoint, "endpoint", "estimate", "estimate|derive")
	flag.IntVar(&cfg.Workers, "workers", 8, "concurrent clients")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "run time")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.2, "Zipf skew over the request pool (>1)")
	flag.IntVar(&cfg.PoolSize, "pool", 256, "distinct requests in the pool")
	flag.StringVar(&cfg.Out, "out", "results/fare", "output prefix for the report and samples")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.IntVar(&cfg.TopRoutes, "top-routes", 10, "routes listed in the report")
	flag.BoolVar(&cfg.SamplesFile, "samples", true, "write one CSV row per request")
	flag.Parse()
	return cfg
}

func main() {
	cfg := loadConfig()
	if cfg.Endpoint != "estimate" && cfg.Endpoint != "derive" {
		log.Fatalf("unknown endpoint %q", cfg.Endpoint)
	}
	if cfg.Workers < 1 || cfg.ZipfS <= 1 {
		log.Fatalf("need workers >= 1 and zipf-s > 1")
	}

	client := &http.Client{Timeout: cfg.Timeout}
	refCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	ref, err := fetchSummary(refCtx, client, cfg.BaseURL)
	cancel()
	if err != nil {
		log.Fatalf("reference: %v", err)
	}
	pool := makeWorkload(ref, cfg.PoolSize, rand.New(rand.NewSource(time.Now().UnixNano())))
	if len(pool) == 0 {
		log.Fatalf("reference data produced no requests")
	}
	target := strings.TrimRight(cfg.BaseURL, "/") + "/v1/" + cfg.Endpoint

	prefix := fmt.Sprintf("%s_%s_%s", cfg.Out, cfg.Endpoint, time.Now().UTC().Format("20060102_150405Z"))
	if err := os.MkdirAll(filepath.Dir(prefix), 0o750); err != nil {
		log.Fatalf("mkdir: %v", err)
	}

	var samples *csv.Writer
	if cfg.SamplesFile {
		f, err := os.Create(filepath.Clean(prefix + "_samples.csv"))
		if err != nil {
			log.Fatalf("samples file: %v", err)
		}
		defer func() { _ = f.Close() }()
		samples = csv.NewWriter(f)
		_ = samples.Write([]string{"at", "latency_ms", "route", "status", "outcome", "price", "diagnostics", "error"})
	}

	ctx, stop := context.WithTimeout(context.Background(), cfg.Duration)
	defer stop()

	log.Printf("driving %s for %s with %d workers over %d requests", target, cfg.Duration, cfg.Workers, len(pool))
	start := time.Now()
	obs := make(chan observation, 1024)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			runWorker(ctx, client, target, pool, cfg.ZipfS, seed, obs)
		}(start.UnixNano() + int64(i))
	}
	go func() {
		wg.Wait()
		close(obs)
	}()

	t := newTally()
	for o := range obs {
		t.add(o)
		if samples != nil {
			_ = samples.Write(sampleRow(o))
		}
	}
	if samples != nil {
		samples.Flush()
		if err := samples.Error(); err != nil {
			log.Printf("samples: %v", err)
		}
	}

	rep := t.report(target, start, time.Since(start), cfg.TopRoutes)
	if err := writeReport(prefix+"_report.json", rep); err != nil {
		log.Printf("report: %v", err)
	}
	log.Printf("requests=%d rps=%.1f priced=%d rejected=%d model_error=%d not_ready=%d missing_distance=%d p95=%.1fms",
		rep.Requests, rep.RPS, rep.Outcomes[OutcomePriced], rep.Outcomes[OutcomeRejected],
		rep.Outcomes[OutcomeModelError], rep.Outcomes[OutcomeNotReady], rep.MissingDistance, rep.Latency.P95Ms)
}

func runWorker(ctx context.Context, client *http.Client, target string, pool []workItem, s float64, seed int64, out chan<- observation) {
	zipf := rand.NewZipf(rand.New(rand.NewSource(seed)), s, 1, uint64(len(pool)-1))
	for ctx.Err() == nil {
		item := pool[zipf.Uint64()]
		o := fire(ctx, client, target, item)
		if ctx.Err() != nil {
			return // cut off by the deadline, not a server result
		}
		select {
		case out <- o:
		case <-ctx.Done():
			return
		}
	}
}

func fire(ctx context.Context, client *http.Client, target string, item workItem) observation {
	o := observation{At: time.Now(), Route: item.Route}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+item.Query, nil)
	if err != nil {
		o.Outcome, o.Err = OutcomeTransport, err.Error()
		return o
	}
	resp, err := client.Do(req)
	o.Latency = time.Since(o.At)
	if err != nil {
		o.Outcome, o.Err = classify(0, err), err.Error()
		return o
	}
	defer func() { _ = resp.Body.Close() }()

	o.Status = resp.StatusCode
	o.Outcome = classify(resp.StatusCode, nil)
	if o.Outcome != OutcomePriced {
		return o
	}
	var body fareBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		o.Err = "decode: " + err.Error()
		return o
	}
	o.Price = body.Price
	o.NoDistance = body.DistanceKm == nil
	o.Diagnostics = len(body.Diagnostics)
	return o
}

func sampleRow(o observation) []string {
	price := ""
	if o.Price != nil {
		price = strconv.FormatFloat(*o.Price, 'f', 2, 64)
	}
	return []string{
		o.At.UTC().Format(time.RFC3339Nano),
		strconv.FormatFloat(float64(o.Latency.Microseconds())/1000, 'f', 3, 64),
		o.Route,
		strconv.Itoa(o.Status),
		string(o.Outcome),
		price,
		strconv.Itoa(o.Diagnostics),
		o.Err,
	}
}

func writeReport(path string, rep Report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), b, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Printf("wrote %s", path)
	return nil
}
