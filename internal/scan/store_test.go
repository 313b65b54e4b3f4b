package scan

import (
	"errors"
	"fmt"
	"testing"
	"time"

	sharederrors "github.com/jackalstv/eon-security-audit/internal/shared/errors"
)

func storedResult(id string, ts time.Time) *Result {
	return &Result{
		ScanID:       id,
		Domain:       "example.com",
		Timestamp:    ts,
		OverallScore: 80,
	}
}

func TestStorePutGet(t *testing.T) {
	store := NewStore(10)
	r := storedResult("scan-1", time.Now())
	store.Put(r)

	got, err := store.Get("scan-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ScanID != "scan-1" || got.Domain != "example.com" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore(10)
	if _, err := store.Get("nope"); !errors.Is(err, sharederrors.ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(10)
	store.Put(storedResult("scan-1", time.Now()))

	if err := store.Delete("scan-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get("scan-1"); !errors.Is(err, sharederrors.ErrScanNotFound) {
		t.Error("expected scan to be gone after delete")
	}
	if err := store.Delete("scan-1"); !errors.Is(err, sharederrors.ErrScanNotFound) {
		t.Errorf("expected ErrScanNotFound on double delete, got %v", err)
	}
}

func TestStoreHistoryNewestFirst(t *testing.T) {
	store := NewStore(10)
	base := time.Now()
	for i := 0; i < 5; i++ {
		store.Put(storedResult(fmt.Sprintf("scan-%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	items := store.History(3)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ScanID != "scan-4" || items[1].ScanID != "scan-3" || items[2].ScanID != "scan-2" {
		t.Errorf("unexpected order: %s, %s, %s", items[0].ScanID, items[1].ScanID, items[2].ScanID)
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	store := NewStore(3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		store.Put(storedResult(fmt.Sprintf("scan-%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	if store.Len() != 3 {
		t.Fatalf("expected 3 retained scans, got %d", store.Len())
	}
	if _, err := store.Get("scan-0"); !errors.Is(err, sharederrors.ErrScanNotFound) {
		t.Error("expected oldest scan to be evicted")
	}
	if _, err := store.Get("scan-4"); err != nil {
		t.Error("expected newest scan to be retained")
	}
}
