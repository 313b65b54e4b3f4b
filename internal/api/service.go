package api

import (
	"context"

	"github.com/jackalstv/eon-security-audit/internal/scan"
)

// AuditService is the production ScanService: it runs scans through a
// scan.Runner and keeps the results in an in-memory store.
type AuditService struct {
	Runner *scan.Runner
	Store  *scan.Store
}

func NewAuditService(runner *scan.Runner, store *scan.Store) *AuditService {
	return &AuditService{Runner: runner, Store: store}
}

func (s *AuditService) StartScan(ctx context.Context, domain string, includeSubdomains bool) (*scan.Result, error) {
	// Copy the runner so a per-request module toggle cannot race with
	// concurrent scans sharing the base configuration.
	runner := *s.Runner
	runner.SkipTakeover = !includeSubdomains

	result, err := runner.Run(ctx, domain)
	if err != nil {
		return nil, err
	}
	s.Store.Put(result)
	return result, nil
}

func (s *AuditService) GetScan(_ context.Context, id string) (*scan.Result, error) {
	return s.Store.Get(id)
}

func (s *AuditService) History(_ context.Context, limit int) []scan.HistoryItem {
	return s.Store.History(limit)
}

func (s *AuditService) DeleteScan(_ context.Context, id string) error {
	return s.Store.Delete(id)
}
