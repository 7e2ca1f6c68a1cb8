// Command timetable_diff compares the published timetables of two running
// deployments, slot by slot. It is used after migrations and restores to
// confirm the target environment serves the same schedules as the source.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type timetable struct {
	ID             string          `json:"id"`
	Year           int             `json:"year"`
	Semester       int             `json:"semester"`
	Division       string          `json:"division"`
	AcademicPeriod string          `json:"academic_period"`
	ClassroomID    *string         `json:"classroom_id"`
	Days           json.RawMessage `json:"days"`
	Status         string          `json:"status"`
}

type listEnvelope struct {
	Data []timetable `json:"data"`
}

type sectionKey struct {
	Year     int
	Semester int
	Division string
}

type difference struct {
	Key    sectionKey
	Detail string
}

func main() {
	var (
		sourceBase string
		targetBase string
		token      string
		period     string
		timeout    time.Duration
	)

	flag.StringVar(&sourceBase, "source-base", "http://localhost:8080", "source API base URL")
	flag.StringVar(&targetBase, "target-base", "", "target API base URL")
	flag.StringVar(&token, "token", os.Getenv("PORTAL_TOKEN"), "bearer token for both deployments")
	flag.StringVar(&period, "period", "", "academic period to compare, e.g. 2026-ODD")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if targetBase == "" || period == "" {
		log.Fatal("both -target-base and -period are required")
	}

	client := &http.Client{Timeout: timeout}
	source, err := fetchPublished(client, sourceBase, token, period)
	if err != nil {
		log.Fatalf("failed to load source timetables: %v", err)
	}
	target, err := fetchPublished(client, targetBase, token, period)
	if err != nil {
		log.Fatalf("failed to load target timetables: %v", err)
	}

	diffs := compare(source, target)
	printReport(period, len(source), len(target), diffs)
	if len(diffs) > 0 {
		os.Exit(1)
	}
}

func fetchPublished(client *http.Client, base, token, period string) (map[sectionKey]timetable, error) {
	url := fmt.Sprintf("%s/api/v1/timetables?status=PUBLISHED&academic_period=%s&page_size=100",
		strings.TrimRight(base, "/"), period)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var envelope listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}

	out := make(map[sectionKey]timetable, len(envelope.Data))
	for _, tt := range envelope.Data {
		out[sectionKey{Year: tt.Year, Semester: tt.Semester, Division: tt.Division}] = tt
	}
	return out, nil
}

func compare(source, target map[sectionKey]timetable) []difference {
	var diffs []difference
	for key, src := range source {
		dst, ok := target[key]
		if !ok {
			diffs = append(diffs, difference{Key: key, Detail: "missing on target"})
			continue
		}
		if !classroomEqual(src.ClassroomID, dst.ClassroomID) {
			diffs = append(diffs, difference{Key: key, Detail: "classroom assignment differs"})
		}
		if !gridsEqual(src.Days, dst.Days) {
			diffs = append(diffs, difference{Key: key, Detail: "day grid differs"})
		}
	}
	for key := range target {
		if _, ok := source[key]; !ok {
			diffs = append(diffs, difference{Key: key, Detail: "missing on source"})
		}
	}
	return diffs
}

func classroomEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// gridsEqual compares decoded grids so key ordering and whitespace in the
// stored JSON do not count as drift.
func gridsEqual(a, b json.RawMessage) bool {
	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	return reflect.DeepEqual(aj, bj)
}

func printReport(period string, sourceCount, targetCount int, diffs []difference) {
	fmt.Printf("Timetable Diff Report (%s)\n", period)
	fmt.Println("===========================")
	fmt.Printf("Source sections: %d | Target sections: %d\n", sourceCount, targetCount)
	if len(diffs) == 0 {
		fmt.Println("No drift detected.")
		return
	}
	for _, d := range diffs {
		fmt.Printf("[DIFF] year=%d semester=%d division=%s: %s\n",
			d.Key.Year, d.Key.Semester, d.Key.Division, d.Detail)
	}
	fmt.Printf("Drifted sections: %d\n", len(diffs))
}
