// Command shadow_compare replays read-only requests against the Go API and
// the legacy center system side by side and reports response diffs. Used
// while cutting traffic over, endpoint by endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

// volatileFields are masked before comparison: both sides generate them
// independently so a mismatch carries no signal.
var volatileFields = map[string]struct{}{
	"id":           {},
	"token":        {},
	"expires_at":   {},
	"generated_at": {},
	"created_at":   {},
	"updated_at":   {},
	"request_id":   {},
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	BodyMatch      bool
	Err            error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func main() {
	var (
		goBase      string
		legacyBase  string
		goToken     string
		legacyToken string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&goBase, "go-base", "http://localhost:8080/api/v1", "Go API base URL")
	flag.StringVar(&legacyBase, "legacy-base", "http://localhost:3000/api", "Legacy API base URL")
	flag.StringVar(&goToken, "go-token", "", "Bearer token for the Go API")
	flag.StringVar(&legacyToken, "legacy-token", "", "Bearer token for the legacy API")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []comparison
		breaking int
		minor    int
	)

	for _, t := range targets {
		comp := compareTarget(client, goBase, goToken, legacyBase, legacyToken, t)
		if comp.Err != nil || !comp.StatusMatch || !comp.BodyMatch {
			if t.Critical {
				breaking++
			} else {
				minor++
			}
		}
		results = append(results, comp)
	}

	printReport(results)

	fmt.Printf("Breaking diffs: %d, Minor diffs: %d\n", breaking, minor)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f targetsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return f.Targets, nil
}

func compareTarget(client *http.Client, goBase, goToken, legacyBase, legacyToken string, tgt target) comparison {
	comp := comparison{Target: tgt}

	goBody, goStatus, goDur, err := fetch(client, goBase, goToken, tgt)
	comp.DurationGo = goDur
	if err != nil {
		comp.Err = fmt.Errorf("go request failed: %w", err)
		return comp
	}
	legacyBody, legacyStatus, legacyDur, err := fetch(client, legacyBase, legacyToken, tgt)
	comp.DurationLegacy = legacyDur
	if err != nil {
		comp.Err = fmt.Errorf("legacy request failed: %w", err)
		return comp
	}

	comp.GoStatus = goStatus
	comp.LegacyStatus = legacyStatus
	comp.StatusMatch = goStatus == legacyStatus
	comp.BodyMatch = bodiesEqual(goBody, legacyBody)
	return comp
}

func fetch(client *http.Client, base, token string, tgt target) ([]byte, int, time.Duration, error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, time.Since(start), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, time.Since(start), err
	}
	return body, resp.StatusCode, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, volatile := volatileFields[k]; volatile {
				val[k] = nil
				continue
			}
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Go Status: %d (%s)\n", res.GoStatus, res.DurationGo)
		fmt.Printf("  Legacy Status: %d (%s)\n", res.LegacyStatus, res.DurationLegacy)
		if res.Err != nil {
			fmt.Printf("  Error: %v\n", res.Err)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
