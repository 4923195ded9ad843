// Command smoke probes a running API instance with a list of endpoint
// targets and reports status mismatches. Meant for post-deploy checks, not
// as a substitute for the test suite.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Match    bool
	Err      error
	Duration time.Duration
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "base URL of the running API")
	configPath := flag.String("config", "scripts/smoke/targets.json", "path to the targets file")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	failures := 0

	for _, t := range cfg.Targets {
		res := probe(client, *baseURL, t)
		status := "ok"
		if !res.Match {
			status = "MISMATCH"
			if t.Critical {
				failures++
			}
		}
		if res.Err != nil {
			status = "ERROR"
			if t.Critical {
				failures++
			}
			fmt.Printf("%-8s %-6s %-40s %v\n", status, t.Method, t.Path, res.Err)
			continue
		}
		fmt.Printf("%-8s %-6s %-40s got=%d want=%d in %s\n",
			status, t.Method, t.Path, res.Status, t.Expect, res.Duration.Round(time.Millisecond))
	}

	if failures > 0 {
		fmt.Printf("\n%d critical target(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("\nall critical targets passed")
}

func loadConfig(path string) (*config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets in %s", path)
	}
	return &cfg, nil
}

func probe(client *http.Client, baseURL string, t target) result {
	start := time.Now()
	req, err := http.NewRequest(t.Method, baseURL+t.Path, nil)
	if err != nil {
		return result{Target: t, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return result{Target: t, Err: err, Duration: time.Since(start)}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	expect := t.Expect
	if expect == 0 {
		expect = http.StatusOK
	}
	return result{
		Target:   t,
		Status:   resp.StatusCode,
		Match:    resp.StatusCode == expect,
		Duration: time.Since(start),
	}
}
