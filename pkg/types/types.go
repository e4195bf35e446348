// pkg/types/types.go
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus represents the current state of a site worker run
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCancelled RunStatus = "cancelled"
)

// ValidStatuses returns all valid run status values
func ValidStatuses() []RunStatus {
	return []RunStatus{StatusIdle, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}
}

// IsValid checks if the status is a valid value
func (s RunStatus) IsValid() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// Site identifies a supported e-commerce site
type Site string

const (
	SiteAmazon    Site = "amazon"
	SiteHomedepot Site = "homedepot"
	SiteLowes     Site = "lowes"
)

// ValidSites returns all supported sites
func ValidSites() []Site {
	return []Site{SiteAmazon, SiteHomedepot, SiteLowes}
}

// IsValid checks if the site is supported
func (s Site) IsValid() bool {
	for _, valid := range ValidSites() {
		if s == valid {
			return true
		}
	}
	return false
}

// Traversal identifies the kind of walk a worker performs
type Traversal string

const (
	TraversalSearch Traversal = "search"
	TraversalDetail Traversal = "detail"
	TraversalReview Traversal = "review"
)

// IsValid checks if the traversal is known
func (t Traversal) IsValid() bool {
	switch t {
	case TraversalSearch, TraversalDetail, TraversalReview:
		return true
	}
	return false
}

// Duration is a time.Duration that marshals as a Go duration string
type Duration time.Duration

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts either a duration string or nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
}

// String returns the string representation
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ToDuration converts to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}

// Now is the clock used to stamp records. Tests may replace it.
var Now = time.Now

// Stamp returns a pointer to the current time, truncated to seconds.
func Stamp() *time.Time {
	t := Now().Truncate(time.Second)
	return &t
}
