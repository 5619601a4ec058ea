package credibility

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxRecordsPerDomain bounds the rolling window kept for each domain.
const maxRecordsPerDomain = 100

// HistoryRecord is one observed interaction with a source domain.
type HistoryRecord struct {
	Domain         string    `json:"domain"`
	Success        bool      `json:"success"`
	ArticleQuality float64   `json:"article_quality"`
	ResponseTimeMS int64     `json:"response_time_ms,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// appendRecord adds a record to a domain's rolling window, evicting the
// oldest entry once the window is full. Caller holds s.mu.
func (s *Scorer) appendRecord(rec HistoryRecord) {
	window := s.history[rec.Domain]
	window = append(window, rec)
	if len(window) > maxRecordsPerDomain {
		window = window[len(window)-maxRecordsPerDomain:]
	}
	s.history[rec.Domain] = window
}

// UpdateSourceHistory appends a record to the per-domain rolling history used
// by subsequent credibility calculations.
func (s *Scorer) UpdateSourceHistory(rec HistoryRecord) {
	if rec.Domain == "" {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendRecord(rec)
}

// HistorySize returns the total number of records across all domains.
func (s *Scorer) HistorySize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, window := range s.history {
		total += len(window)
	}
	return total
}

// ExportHistory serializes the domain-history store to JSON.
func (s *Scorer) ExportHistory() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(s.history)
}

// ImportHistory restores a history snapshot. Restoration is best-effort: a
// corrupt domain entry is skipped while well-formed entries are kept. The
// number of restored records is returned.
func (s *Scorer) ImportHistory(data []byte) (int, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse history snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for domain, entry := range raw {
		var window []HistoryRecord
		if err := json.Unmarshal(entry, &window); err != nil {
			continue
		}
		if len(window) > maxRecordsPerDomain {
			window = window[len(window)-maxRecordsPerDomain:]
		}
		for i := range window {
			if window[i].Domain == "" {
				window[i].Domain = domain
			}
		}
		s.history[domain] = window
		restored += len(window)
	}

	return restored, nil
}

// ClearHistory drops all per-domain history.
func (s *Scorer) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string][]HistoryRecord)
}

// historyStats summarizes a domain window. Caller holds s.mu (read).
type historyStats struct {
	samples     int
	successRate float64
	avgQuality  float64
}

func summarize(window []HistoryRecord) historyStats {
	if len(window) == 0 {
		return historyStats{}
	}
	successes := 0
	qualitySum := 0.0
	for _, rec := range window {
		if rec.Success {
			successes++
		}
		qualitySum += rec.ArticleQuality
	}
	return historyStats{
		samples:     len(window),
		successRate: float64(successes) / float64(len(window)),
		avgQuality:  qualitySum / float64(len(window)),
	}
}
