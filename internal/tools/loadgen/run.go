package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
	Status429     int64
}

// scenario builds one request. n is the global request sequence so bodies
// such as registration emails stay unique across workers.
type scenario struct {
	name  string
	build func(n int, rng *rand.Rand) (method, path string, body any)
}

type job struct {
	n  int
	sc scenario
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	client := &http.Client{Timeout: 5 * time.Second}
	scenarios := scenariosForProfile(cfg.Profile)
	if len(scenarios) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx, s429 int64
	jobs := make(chan job, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(worker)))
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				method, path, body := j.sc.build(j.n, rng)
				req, err := newRequest(ctx, method, baseURL+path, body)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						continue
					}
					atomic.AddInt64(&failures, 1)
					observability.RecordLoadgenRequest(ctx, "error", j.sc.name)
					continue
				}
				_ = resp.Body.Close()
				atomic.AddInt64(&total, 1)
				observability.RecordLoadgenRequest(ctx, statusClass(resp.StatusCode), j.sc.name)
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&s2xx, 1)
				case resp.StatusCode >= 400 && resp.StatusCode < 500:
					atomic.AddInt64(&s4xx, 1)
					if resp.StatusCode == http.StatusTooManyRequests {
						atomic.AddInt64(&s429, 1)
					}
				case resp.StatusCode >= 500:
					atomic.AddInt64(&s5xx, 1)
				}
			}
		}(i)
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return Result{TotalRequests: total, Failures: failures, Status2xx: s2xx, Status4xx: s4xx, Status5xx: s5xx, Status429: s429}, nil
		case <-ticker.C:
			select {
			case jobs <- job{n: i, sc: scenarios[i%len(scenarios)]}:
				i++
			case <-ctx.Done():
			}
		}
	}
}

func newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	if body == nil {
		return http.NewRequestWithContext(ctx, method, url, nil)
	}
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func statusClass(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 200 && code < 300:
		return "2xx"
	default:
		return "other"
	}
}

var (
	registerScenario = scenario{name: "register", build: func(n int, rng *rand.Rand) (string, string, any) {
		return http.MethodPost, "/api/v1/auth/register", map[string]string{
			"email":      fmt.Sprintf("loadgen-%d-%d@example.com", n, rng.IntN(1_000_000)),
			"first_name": "Load",
			"last_name":  "Gen",
			"password":   "loadgen-pass",
			"password2":  "loadgen-pass",
		}
	}}
	loginScenario = scenario{name: "login_invalid", build: func(n int, _ *rand.Rand) (string, string, any) {
		return http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    fmt.Sprintf("loadgen-%d@example.com", n),
			"password": "wrong-password",
		}
	}}
	verifyScenario = scenario{name: "verify_invalid", build: func(_ int, rng *rand.Rand) (string, string, any) {
		return http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
			"otp_code": fmt.Sprintf("%06d", rng.IntN(1_000_000)),
		}
	}}
	resetScenario = scenario{name: "password_reset", build: func(n int, _ *rand.Rand) (string, string, any) {
		return http.MethodPost, "/api/v1/auth/password-reset", map[string]string{
			"email": fmt.Sprintf("loadgen-%d@example.com", n),
		}
	}}
	resetLinkScenario = scenario{name: "reset_link_invalid", build: func(int, *rand.Rand) (string, string, any) {
		return http.MethodGet, "/api/v1/auth/password-reset-confirm/bm9wZQ/invalid-token", nil
	}}
	refreshScenario = scenario{name: "refresh_invalid", build: func(int, *rand.Rand) (string, string, any) {
		return http.MethodPost, "/api/v1/auth/token/refresh", map[string]string{"refresh": "not-a-token"}
	}}
	malformedScenario = scenario{name: "malformed_body", build: func(int, *rand.Rand) (string, string, any) {
		return http.MethodPost, "/api/v1/auth/login", `{"email":`
	}}
	healthScenario = scenario{name: "health", build: func(int, *rand.Rand) (string, string, any) {
		return http.MethodGet, "/health/ready", nil
	}}
)

func scenariosForProfile(profile string) []scenario {
	switch strings.ToLower(profile) {
	case "", "mixed":
		return []scenario{registerScenario, loginScenario, verifyScenario, resetScenario, refreshScenario, healthScenario}
	case "auth":
		return []scenario{registerScenario, loginScenario, verifyScenario, resetScenario}
	case "error-heavy":
		return []scenario{verifyScenario, resetLinkScenario, refreshScenario, malformedScenario}
	default:
		return nil
	}
}
