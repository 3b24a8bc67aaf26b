package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/leapstack-labs/deployhook/pkg/core"
)

// timeLayouts are tried in order when parsing a created_at string.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// RepoRecord is a repo as fetched from /repos.json with its timestamp parsed.
type RepoRecord struct {
	ID     string
	Name   string
	Branch string
	App    string
	// CreatedAt is zero when the wire value was missing or unparseable.
	CreatedAt time.Time
	// CreatedAtRaw keeps the wire value.
	CreatedAtRaw string
}

// HasCreatedAt reports whether the timestamp was parsed.
func (r RepoRecord) HasCreatedAt() bool {
	return !r.CreatedAt.IsZero()
}

// UnmarshalJSON decodes a repo record, accepting string or numeric ids and
// string or epoch timestamps.
func (r *RepoRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        json.RawMessage `json:"id"`
		Name      string          `json:"name"`
		Branch    string          `json:"branch"`
		App       string          `json:"app"`
		CreatedAt json.RawMessage `json:"created_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = RepoRecord{
		ID:     rawScalar(wire.ID),
		Name:   wire.Name,
		Branch: wire.Branch,
		App:    wire.App,
	}
	r.CreatedAtRaw = rawScalar(wire.CreatedAt)
	r.CreatedAt, _ = parseTimestamp(wire.CreatedAt)
	return nil
}

// AppRecord is an app as fetched from /apps.json.
type AppRecord struct {
	core.App
}

// UnmarshalJSON decodes an app record, tolerating numeric ids and
// non-string metadata values.
func (a *AppRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID      json.RawMessage            `json:"id"`
		Name    string                     `json:"name"`
		Meta    map[string]json.RawMessage `json:"meta"`
		Release string                     `json:"release"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	a.App = core.App{
		ID:        rawScalar(wire.ID),
		Name:      wire.Name,
		ReleaseID: wire.Release,
	}
	if wire.Meta != nil {
		a.Meta = make(map[string]string, len(wire.Meta))
		for k, v := range wire.Meta {
			a.Meta[k] = rawScalar(v)
		}
	}
	return nil
}

// Label is the option text for the app selector.
func (a AppRecord) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// rawScalar renders a JSON scalar as text. Strings are unquoted so that only
// the literal string "true" compares equal to "true"; a JSON boolean true
// is rendered as "json:true".
func rawScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if bytes.Equal(raw, []byte("true")) || bytes.Equal(raw, []byte("false")) {
		return "json:" + string(raw)
	}
	return string(raw)
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}

	if raw[0] != '"' {
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch %s: %w", raw, err)
		}
		// values past year 33658 in seconds are treated as milliseconds
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC(), nil
		}
		return time.Unix(int64(n), 0).UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
