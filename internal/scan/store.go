package scan

import (
	"sort"
	"sync"
	"time"

	"github.com/jackalstv/eon-security-audit/internal/analyzer"
	sharederrors "github.com/jackalstv/eon-security-audit/internal/shared/errors"
)

// HistoryItem is the condensed listing entry for a stored scan.
type HistoryItem struct {
	ScanID       string            `json:"scan_id"`
	Domain       string            `json:"domain"`
	Timestamp    time.Time         `json:"timestamp"`
	OverallScore int               `json:"overall_score"`
	Platform     analyzer.Platform `json:"platform"`
}

// Store keeps finished scans in memory, keyed by scan ID. Retention is
// bounded: once maxScans is exceeded the oldest scans are evicted.
type Store struct {
	mu       sync.RWMutex
	scans    map[string]*Result
	maxScans int
}

// NewStore builds a store retaining at most maxScans results (1000 when
// zero or negative).
func NewStore(maxScans int) *Store {
	if maxScans <= 0 {
		maxScans = 1000
	}
	return &Store{
		scans:    make(map[string]*Result),
		maxScans: maxScans,
	}
}

// Put stores a finished scan, evicting the oldest entries beyond the
// retention cap.
func (s *Store) Put(result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[result.ScanID] = result

	if len(s.scans) <= s.maxScans {
		return
	}
	ordered := s.sortedLocked()
	for _, item := range ordered[s.maxScans:] {
		delete(s.scans, item.ScanID)
	}
}

// Get returns a copy of the stored scan, or ErrScanNotFound.
func (s *Store) Get(id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.scans[id]
	if !ok {
		return nil, sharederrors.ErrScanNotFound
	}
	copy := *result
	return &copy, nil
}

// Delete removes a stored scan, or reports ErrScanNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[id]; !ok {
		return sharederrors.ErrScanNotFound
	}
	delete(s.scans, id)
	return nil
}

// History lists stored scans newest-first, capped at limit (all when
// limit <= 0).
func (s *Store) History(limit int) []HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.sortedLocked()
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Len reports how many scans are currently retained.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scans)
}

func (s *Store) sortedLocked() []HistoryItem {
	items := make([]HistoryItem, 0, len(s.scans))
	for _, r := range s.scans {
		items = append(items, HistoryItem{
			ScanID:       r.ScanID,
			Domain:       r.Domain,
			Timestamp:    r.Timestamp,
			OverallScore: r.OverallScore,
			Platform:     r.Platform,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].ScanID > items[j].ScanID
		}
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}
