package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type check struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	BudgetMS  int    `json:"budget_ms"`
	Critical  bool   `json:"critical"`
	NeedsAuth bool   `json:"needs_auth"`
}

type config struct {
	Checks []check `json:"checks"`
}

type result struct {
	Check    check
	Status   int
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base       string
		token      string
		checksPath string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&token, "token", os.Getenv("SMOKE_TOKEN"), "Bearer token for authenticated checks")
	flag.StringVar(&checksPath, "checks", filepath.Join("scripts", "smokecheck", "checks.json"), "Path to JSON checks file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	checks, err := loadChecks(checksPath)
	if err != nil {
		log.Fatalf("failed to load checks: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		failures int
		warnings int
	)

	for _, c := range checks {
		res := runCheck(client, base, token, c)
		if failed(res) {
			if c.Critical {
				failures++
			} else {
				warnings++
			}
		}
		results = append(results, res)
	}

	printReport(results)

	fmt.Printf("Failures: %d, Warnings: %d\n", failures, warnings)
	if failures > 0 {
		os.Exit(1)
	}
}

func loadChecks(path string) ([]check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Checks) == 0 {
		return nil, fmt.Errorf("no checks defined in %s", path)
	}
	return cfg.Checks, nil
}

func runCheck(client *http.Client, base, token string, c check) result {
	res := result{Check: c}

	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := c.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		res.Error = err
		return res
	}
	if c.NeedsAuth {
		if token == "" {
			res.Error = fmt.Errorf("check requires auth but no token was provided")
			return res
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	return res
}

func failed(res result) bool {
	if res.Error != nil {
		return true
	}
	want := res.Check.Status
	if want == 0 {
		want = http.StatusOK
	}
	if res.Status != want {
		return true
	}
	if res.Check.BudgetMS > 0 && res.Duration > time.Duration(res.Check.BudgetMS)*time.Millisecond {
		return true
	}
	return false
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if failed(res) {
			if res.Check.Critical {
				status = "FAIL"
			} else {
				status = "WARN"
			}
		}
		fmt.Printf("[%s] %s %s\n", status, res.Check.Method, res.Check.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		want := res.Check.Status
		if want == 0 {
			want = http.StatusOK
		}
		fmt.Printf("  Status: %d (want %d) | Duration: %s | Critical: %t\n", res.Status, want, res.Duration, res.Check.Critical)
	}
}
