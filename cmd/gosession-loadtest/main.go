package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// stubServer is an in-process auth + feature API. It rotates the accepted
// access token on every refresh and can be told to expire the current token
// every N feature calls, which turns steady traffic into 401 storms.
type stubServer struct {
	mu          sync.Mutex
	accessToken string
	generation  int64

	expireEvery int64
	calls       atomic.Int64
	refreshes   atomic.Int64
}

func (s *stubServer) rotate() string {
	s.mu.Lock()
	s.generation++
	s.accessToken = fmt.Sprintf("access-%d", s.generation)
	tok := s.accessToken
	s.mu.Unlock()
	return tok
}

func (s *stubServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/otp/verify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, goSession.LoginResult{
			User: goSession.User{ID: "u1", Identity: "+15550001111"},
			Tokens: goSession.TokenPair{
				AccessToken:  s.rotate(),
				RefreshToken: "refresh-1",
				ExpiresIn:    900,
			},
		})
	})

	mux.HandleFunc("POST /auth/otp/send", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"message": "ok"})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshes.Add(1)
		writeJSON(w, map[string]string{"accessToken": s.rotate()})
	})

	mux.HandleFunc("POST /auth/revoke", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"message": "ok"})
	})

	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		n := s.calls.Add(1)
		if s.expireEvery > 0 && n%s.expireEvery == 0 {
			s.rotate()
		}
		s.mu.Lock()
		current := "Bearer " + s.accessToken
		s.mu.Unlock()
		if r.Header.Get("Authorization") != current {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{"message": "pong"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "authenticated calls per phase (steady + storm)")
		expireEvery = flag.Int64("expire-every", 500, "expire the access token every N calls in the storm phase")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *expireEvery <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and expire-every must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	stub := &stubServer{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()
	fmt.Printf("using stub API at %s\n", srv.URL)

	manager, err := goSession.New().
		WithBaseURL(srv.URL).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	manager.RestoreSession(ctx)
	if _, err := manager.SendOTP(ctx, "+15550001111"); err != nil {
		fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := manager.VerifyOTP(ctx, "+15550001111", "123456"); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	steadyStats := runCallPhase(ctx, manager, *ops, *concurrency)

	stub.expireEvery = *expireEvery
	stormStats := runCallPhase(ctx, manager, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("steady", steadyStats)
	printStats("storm", stormStats)
	fmt.Printf("server refreshes=%d client refresh_success=%d coalesced_waits=%d\n",
		stub.refreshes.Load(),
		manager.MetricValue(goSession.MetricRefreshSuccess),
		manager.MetricValue(goSession.MetricRefreshCoalesced),
	)
}

func runCallPhase(ctx context.Context, manager *goSession.Manager, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	client := manager.Client()

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := client.Get(ctx, "/ping")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
