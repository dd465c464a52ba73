// Package stats tracks per-domain capture and challenge statistics. The
// numbers feed the end-of-run summary and identify domains whose defenses
// consistently beat the solver.
package stats

import (
	"net/url"
	"sync"
	"time"
)

// DomainStats tracks capture results for a single domain.
type DomainStats struct {
	Attempts           int64 `json:"attempts"`
	Captures           int64 `json:"captures"`
	Failures           int64 `json:"failures"`
	ChallengesSeen     int64 `json:"challengesSeen"`
	ChallengesSolved   int64 `json:"challengesSolved"`
	ChallengesUnsolved int64 `json:"challengesUnsolved"`

	TotalDurationMs int64     `json:"-"`
	AvgDurationMs   int64     `json:"avgDurationMs"`
	LastAttempt     time.Time `json:"lastAttempt,omitempty"`
}

// Recorder aggregates capture statistics across domains. Safe for concurrent
// use by the per-URL workers.
type Recorder struct {
	mu      sync.RWMutex
	domains map[string]*DomainStats
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{domains: make(map[string]*DomainStats)}
}

// ExtractDomain extracts the hostname from a URL, empty on parse failure.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func (r *Recorder) getOrCreate(domain string) *DomainStats {
	if s, ok := r.domains[domain]; ok {
		return s
	}
	s := &DomainStats{}
	r.domains[domain] = s
	return s
}

// RecordCapture records one capture attempt for the URL's domain.
func (r *Recorder) RecordCapture(rawURL string, success bool, duration time.Duration) {
	domain := ExtractDomain(rawURL)
	if domain == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreate(domain)
	s.Attempts++
	if success {
		s.Captures++
	} else {
		s.Failures++
	}
	s.TotalDurationMs += duration.Milliseconds()
	s.AvgDurationMs = s.TotalDurationMs / s.Attempts
	s.LastAttempt = time.Now()
}

// RecordChallenge records a challenge encounter and whether it was cleared.
func (r *Recorder) RecordChallenge(rawURL string, solved bool) {
	domain := ExtractDomain(rawURL)
	if domain == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreate(domain)
	s.ChallengesSeen++
	if solved {
		s.ChallengesSolved++
	} else {
		s.ChallengesUnsolved++
	}
}

// Snapshot returns a copy of all domain statistics.
func (r *Recorder) Snapshot() map[string]DomainStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]DomainStats, len(r.domains))
	for domain, s := range r.domains {
		out[domain] = *s
	}
	return out
}

// Totals returns run-wide counters summed over every domain.
func (r *Recorder) Totals() (attempts, captures, challengesSeen, challengesSolved int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.domains {
		attempts += s.Attempts
		captures += s.Captures
		challengesSeen += s.ChallengesSeen
		challengesSolved += s.ChallengesSolved
	}
	return attempts, captures, challengesSeen, challengesSolved
}
