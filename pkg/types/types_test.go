// pkg/types/types_test.go
package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRunStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  RunStatus
		isValid bool
	}{
		{"idle status", StatusIdle, true},
		{"running status", StatusRunning, true},
		{"completed status", StatusCompleted, true},
		{"failed status", StatusFailed, true},
		{"cancelled status", StatusCancelled, true},
		{"invalid status", RunStatus("paused"), false},
		{"empty status", RunStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.isValid {
				t.Errorf("RunStatus.IsValid() = %v, want %v", got, tt.isValid)
			}
		})
	}

	for _, status := range ValidStatuses() {
		if !status.IsValid() {
			t.Errorf("ValidStatuses() returned invalid status: %s", status)
		}
	}
}

func TestSite(t *testing.T) {
	for _, site := range ValidSites() {
		if !site.IsValid() {
			t.Errorf("ValidSites() returned invalid site: %s", site)
		}
	}
	if Site("walmart").IsValid() {
		t.Error("expected unknown site to be invalid")
	}
	if !TraversalReview.IsValid() || Traversal("cart").IsValid() {
		t.Error("unexpected traversal validity")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"string form", `"1m30s"`, 90 * time.Second, false},
		{"nanoseconds", `1000000000`, time.Second, false},
		{"bad string", `"soon"`, 0, true},
		{"bad type", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && d.ToDuration() != tt.expected {
				t.Errorf("UnmarshalJSON() = %v, want %v", d.ToDuration(), tt.expected)
			}
		})
	}

	data, err := json.Marshal(Duration(2 * time.Second))
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(data) != `"2s"` {
		t.Errorf("MarshalJSON() = %s, want \"2s\"", data)
	}
}

func TestHomedepotReviewID(t *testing.T) {
	r := HomedepotReview{Username: "bob", DateInfo: "Jan 5, 2024", Title: "Solid"}
	a := HomedepotReviewID("100", r)
	b := HomedepotReviewID("100", r)
	c := HomedepotReviewID("200", r)

	if a != b {
		t.Errorf("expected stable id, got %s and %s", a, b)
	}
	if a == c {
		t.Error("expected ids to differ across products")
	}
}
