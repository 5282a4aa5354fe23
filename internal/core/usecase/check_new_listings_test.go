package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mityay36/avito-bot/internal/core/domain"
)

type fakePipeline struct {
	result domain.CycleResult
	err    error
}

func (f *fakePipeline) Execute(ctx context.Context) (domain.CycleResult, error) {
	return f.result, f.err
}

type fakeDedupStore struct {
	recorded  map[domain.Fingerprint]bool
	existsErr error
	recordErr error
	lookups   int
	purged    int64
	purgeErr  error
}

func newFakeDedupStore() *fakeDedupStore {
	return &fakeDedupStore{recorded: make(map[domain.Fingerprint]bool)}
}

func (f *fakeDedupStore) Exists(ctx context.Context, id domain.Fingerprint) (bool, error) {
	f.lookups++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.recorded[id], nil
}

func (f *fakeDedupStore) Record(ctx context.Context, id domain.Fingerprint, listing domain.Listing) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded[id] = true
	return nil
}

func (f *fakeDedupStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	return f.purged, nil
}

type fakeSink struct {
	listings  []domain.Listing
	statuses  []string
	notifyErr error
}

func (f *fakeSink) NotifyListing(ctx context.Context, listing domain.Listing) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.listings = append(f.listings, listing)
	return nil
}

func (f *fakeSink) NotifyStatus(ctx context.Context, text string) error {
	f.statuses = append(f.statuses, text)
	return nil
}

func successResult(listings ...domain.Listing) domain.CycleResult {
	return domain.CycleResult{
		Outcome:    domain.OutcomeSuccess,
		Listings:   listings,
		Strategy:   "structured_api",
		FinishedAt: time.Now(),
	}
}

func sampleListing() domain.Listing {
	price := int64(65000)
	return domain.Listing{
		SourceID:   "42",
		Title:      "2-к квартира, 45 м²",
		PriceMinor: &price,
		Location:   "Таганская",
		ListingURL: "https://www.avito.ru/item/42",
	}
}

func newMonitor(pipeline *fakePipeline, dedup *fakeDedupStore, sink *fakeSink) *CheckNewListingsUseCase {
	return NewCheckNewListingsUseCase(pipeline, dedup, sink, newTestManager(), CheckNewListingsConfig{
		BlockNotifyInterval: 30 * time.Minute,
	})
}

func TestMonitorNotifiesOnceAcrossCycles(t *testing.T) {
	pipeline := &fakePipeline{result: successResult(sampleListing())}
	dedup := newFakeDedupStore()
	sink := &fakeSink{}
	uc := newMonitor(pipeline, dedup, sink)

	for cycle := 0; cycle < 2; cycle++ {
		if _, err := uc.Execute(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", cycle, err)
		}
	}

	if len(sink.listings) != 1 {
		t.Errorf("notifications = %d; identical fingerprint must notify at most once", len(sink.listings))
	}
	if dedup.lookups != 2 {
		t.Errorf("dedup lookups = %d; want 2", dedup.lookups)
	}
}

func TestMonitorRecordsAfterDelivery(t *testing.T) {
	pipeline := &fakePipeline{result: successResult(sampleListing())}
	dedup := newFakeDedupStore()
	sink := &fakeSink{notifyErr: errors.New("telegram 502")}
	uc := newMonitor(pipeline, dedup, sink)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	// Доставка сорвалась: отпечаток не записан, следующий цикл переотправит.
	if len(dedup.recorded) != 0 {
		t.Error("failed delivery must not record the fingerprint")
	}

	sink.notifyErr = nil
	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(sink.listings) != 1 {
		t.Errorf("notifications = %d; want redelivery on the next cycle", len(sink.listings))
	}
	if len(dedup.recorded) != 1 {
		t.Error("successful delivery must record the fingerprint")
	}
}

func TestMonitorTreatsLookupFailureAsSeen(t *testing.T) {
	pipeline := &fakePipeline{result: successResult(sampleListing())}
	dedup := newFakeDedupStore()
	dedup.existsErr = errors.New("connection refused")
	sink := &fakeSink{}
	uc := newMonitor(pipeline, dedup, sink)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(sink.listings) != 0 {
		t.Error("lookup failure must suppress the notification, not risk a duplicate")
	}
}

func TestMonitorSendsSummaryStatus(t *testing.T) {
	pipeline := &fakePipeline{result: successResult(sampleListing())}
	dedup := newFakeDedupStore()
	sink := &fakeSink{}
	uc := newMonitor(pipeline, dedup, sink)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(sink.statuses) != 1 {
		t.Fatalf("statuses = %d; want summary after new listings", len(sink.statuses))
	}
	want := "✅ Найдено 1 новых квартир"
	if sink.statuses[0] != want {
		t.Errorf("status = %q; want %q", sink.statuses[0], want)
	}
}

func TestMonitorThrottlesBlockNotifications(t *testing.T) {
	pipeline := &fakePipeline{
		result: domain.CycleResult{Outcome: domain.OutcomeExhausted, FinishedAt: time.Now()},
		err:    fmt.Errorf("acquire: %w", domain.ErrBlocked),
	}
	dedup := newFakeDedupStore()
	sink := &fakeSink{}
	uc := newMonitor(pipeline, dedup, sink)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		if _, err := uc.Execute(context.Background()); err != nil {
			t.Fatalf("blocked cycle must not surface an error: %v", err)
		}
	}
	if len(sink.statuses) != 1 {
		t.Errorf("block notifications = %d; want 1 within the throttle window", len(sink.statuses))
	}

	uc.now = func() time.Time { return base.Add(31 * time.Minute) }
	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(sink.statuses) != 2 {
		t.Errorf("block notifications = %d; want 2 after the window passed", len(sink.statuses))
	}
}

func TestMonitorSnapshotReflectsLastCycle(t *testing.T) {
	pipeline := &fakePipeline{result: successResult(sampleListing())}
	dedup := newFakeDedupStore()
	sink := &fakeSink{}
	uc := newMonitor(pipeline, dedup, sink)

	if _, err := uc.Execute(context.Background()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	status := uc.Snapshot()
	if status.LastOutcome != string(domain.OutcomeSuccess) {
		t.Errorf("LastOutcome = %q; want success", status.LastOutcome)
	}
	if status.LastNewListings != 1 {
		t.Errorf("LastNewListings = %d; want 1", status.LastNewListings)
	}
}
