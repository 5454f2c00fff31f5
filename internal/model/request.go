package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Request is a parsed constants request of the form
//
//	/path/to/data:run:variation:time
//
// Every part after the path may be omitted or left empty; the Has* flags
// say which parts were given.
type Request struct {
	Path         string
	Run          int64
	HasRun       bool
	Variation    string
	HasVariation bool
	Time         time.Time
	HasTime      bool
}

// requestTimeLayouts are tried in order; each entry's precision is the
// period a partial time is rounded up to.
var requestTimeLayouts = []struct {
	layout string
	step   func(time.Time) time.Time
}{
	{"2006-01-02 15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
	{"2006-01-02 15:04", func(t time.Time) time.Time { return t.Add(time.Minute) }},
	{"2006-01-02 15", func(t time.Time) time.Time { return t.Add(time.Hour) }},
	{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
	{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
}

// ParseRequest parses a request string. The path is normalized; run must
// be a non-negative integer; time uses one of the layouts above and a
// partial time means the last instant of the given period.
func ParseRequest(s string) (Request, error) {
	parts := strings.SplitN(s, ":", 4)

	var req Request
	p, err := NormalizePath(parts[0])
	if err != nil {
		return Request{}, err
	}
	req.Path = p

	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		run, err := parseRun(strings.TrimSpace(parts[1]))
		if err != nil {
			return Request{}, fmt.Errorf("parse request %q: run: %w", s, err)
		}
		req.Run = run
		req.HasRun = true
	}

	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		req.Variation = NormalizeName(parts[2])
		req.HasVariation = true
	}

	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		t, err := ParseRequestTime(parts[3])
		if err != nil {
			return Request{}, fmt.Errorf("parse request %q: %w", s, err)
		}
		req.Time = t
		req.HasTime = true
	}

	return req, nil
}

// ParseRequestTime parses a full or partial UTC timestamp and returns the
// last instant of the period it names: "2029" is 2029-12-31 23:59:59.999999999.
func ParseRequestTime(s string) (time.Time, error) {
	text := strings.TrimSpace(s)
	for _, l := range requestTimeLayouts {
		t, err := time.ParseInLocation(l.layout, text, time.UTC)
		if err == nil {
			return l.step(t).Add(-time.Nanosecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q: expected YYYY[-MM[-DD[ hh[:mm[:ss]]]]]", s)
}

// String renders the request back into its textual form.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString(r.Path)
	if !r.HasRun && !r.HasVariation && !r.HasTime {
		return b.String()
	}
	b.WriteByte(':')
	if r.HasRun {
		b.WriteString(strconv.FormatInt(r.Run, 10))
	}
	if !r.HasVariation && !r.HasTime {
		return b.String()
	}
	b.WriteByte(':')
	b.WriteString(r.Variation)
	if r.HasTime {
		b.WriteByte(':')
		b.WriteString(r.Time.UTC().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
