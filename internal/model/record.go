package model

import (
	"errors"
	"fmt"
	"time"
)

// StatusProcessed is the only status an analysis record can carry.
const StatusProcessed = "Processed"

// DefaultContentType is used when the content type cannot be guessed.
const DefaultContentType = "application/octet-stream"

// TimestampLayout is the wire format of processed_utc: UTC, second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

// StoredObject describes an object written to the content store.
type StoredObject struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// AnalysisRecord is the metadata entry produced for one analyzed object.
// It is never modified after the analyzer returns it.
type AnalysisRecord struct {
	Filename     string    `json:"filename"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `json:"mime_type"`
	SHA256       string    `json:"sha256"`
	LineCount    *int      `json:"line_count"`
	ProcessedUTC Timestamp `json:"processed_utc"`
	Status       string    `json:"status"`
}

// Validate checks the invariants every persisted record must hold.
func (r *AnalysisRecord) Validate() error {
	if r.Filename == "" {
		return errors.New("filename is required")
	}
	if r.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be non-negative, got %d", r.SizeBytes)
	}
	if !IsSHA256Hex(r.SHA256) {
		return fmt.Errorf("sha256 must be 64 lowercase hex characters, got %q", r.SHA256)
	}
	if r.LineCount != nil && *r.LineCount < 0 {
		return fmt.Errorf("line_count must be non-negative, got %d", *r.LineCount)
	}
	if r.Status != StatusProcessed {
		return fmt.Errorf("unexpected status %q", r.Status)
	}
	return nil
}

// IsSHA256Hex reports whether s is a lowercase hex-encoded SHA-256 digest.
func IsSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Timestamp is a UTC instant truncated to whole seconds, encoded as TimestampLayout.
type Timestamp struct {
	time.Time
}

// NewTimestamp converts t to UTC and drops sub-second precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

func (t Timestamp) String() string {
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*t = Timestamp{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("processed_utc: expected a JSON string, got %s", s)
	}
	parsed, err := time.Parse(time.RFC3339, s[1:len(s)-1])
	if err != nil {
		return fmt.Errorf("processed_utc: %w", err)
	}
	*t = NewTimestamp(parsed)
	return nil
}
