package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mityay36/avito-bot/internal/core/domain"
	"github.com/mityay36/avito-bot/internal/core/extractor"
	"github.com/mityay36/avito-bot/internal/core/port"
	"github.com/mityay36/avito-bot/internal/core/recovery"
)

type fakeStrategy struct {
	name  string
	page  *domain.RawPage
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Fetch(ctx context.Context, search domain.SearchConfig, proxy *domain.ProxyEndpoint) (*domain.RawPage, error) {
	f.calls++
	return f.page, f.err
}

type nopSessionStore struct{}

func (nopSessionStore) Load(ctx context.Context) ([]domain.SessionCookie, error)       { return nil, nil }
func (nopSessionStore) Save(ctx context.Context, cookies []domain.SessionCookie) error { return nil }
func (nopSessionStore) Drop(ctx context.Context) error                                 { return nil }

func qualifyingItem() domain.RawItem {
	return domain.RawItem{
		ID:             json.Number("42"),
		Title:          "2-к квартира, 45 м²",
		PriceDetailing: domain.PriceDetailing{Value: 65000},
		Location:       domain.LocationRef{Name: "Таганская"},
		Geo:            domain.GeoRef{References: []string{"15 мин до метро Таганская"}},
		URLPath:        "/moskva/kvartiry/2-k_kvartira_42",
	}
}

func testCriteria() domain.FilterCriteria {
	return domain.FilterCriteria{
		MaxPriceMinor:     75000,
		MinAreaSqm:        35,
		MaxWalkMinutes:    15,
		AllowedRoomCounts: []int{1, 2},
		TargetStations:    []string{"таганская"},
	}
}

func newTestManager() *recovery.Manager {
	return recovery.NewManager(domain.NewBlockState(), nil, 30*time.Minute, nopSessionStore{})
}

func buildPipeline(manager *recovery.Manager, strategies ...port.FetchStrategyPort) *AcquireListingsUseCase {
	return NewAcquireListingsUseCase(
		strategies,
		recovery.NewDetector([]string{"доступ ограничен"}, []string{"/blocked"}),
		manager,
		extractor.New([]string{"таганская"}, "https://www.avito.ru"),
		testCriteria(),
		AcquireListingsConfig{},
	)
}

func TestExecuteSkipsCycleDuringCooldown(t *testing.T) {
	manager := newTestManager()
	manager.HandleBlock(context.Background(), nil)

	strategy := &fakeStrategy{name: "structured_api"}
	uc := buildPipeline(manager, strategy)

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeSkippedCooldown {
		t.Errorf("Outcome = %s; want %s", result.Outcome, domain.OutcomeSkippedCooldown)
	}
	if strategy.calls != 0 {
		t.Errorf("strategy calls = %d; cooldown cycle must not fetch at all", strategy.calls)
	}
}

func TestExecuteFallsThroughTransientFailures(t *testing.T) {
	failing := &fakeStrategy{name: "structured_api", err: errors.New("connection reset")}
	succeeding := &fakeStrategy{
		name: "markup_scrape",
		page: &domain.RawPage{
			Strategy:   "markup_scrape",
			StatusCode: 200,
			Items:      []domain.RawItem{qualifyingItem()},
		},
	}

	uc := buildPipeline(newTestManager(), failing, succeeding)

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess {
		t.Fatalf("Outcome = %s; want success", result.Outcome)
	}
	if result.Strategy != "markup_scrape" {
		t.Errorf("Strategy = %q; want markup_scrape", result.Strategy)
	}
	if len(result.Listings) != 1 {
		t.Errorf("Listings = %d; want 1", len(result.Listings))
	}
	if failing.calls != 1 || succeeding.calls != 1 {
		t.Errorf("calls = %d/%d; want 1/1", failing.calls, succeeding.calls)
	}
}

func TestExecuteEmptyPayloadFallsThrough(t *testing.T) {
	// Пустой ответ - не блокировка: проход к следующей стратегии без
	// мутации состояния восстановления.
	empty := &fakeStrategy{
		name: "markup_scrape",
		err:  fmt.Errorf("avito markup strategy: %w", domain.ErrEmptyPayload),
	}
	succeeding := &fakeStrategy{
		name: "browser_emulation",
		page: &domain.RawPage{StatusCode: 200, Items: []domain.RawItem{qualifyingItem()}},
	}

	manager := newTestManager()
	uc := buildPipeline(manager, empty, succeeding)

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess {
		t.Fatalf("Outcome = %s; want success", result.Outcome)
	}
	if succeeding.calls != 1 {
		t.Error("pipeline must fall through past an empty payload")
	}
	if manager.InCooldown() || manager.TotalBlocks() != 0 {
		t.Error("empty payload must not be treated as a block")
	}
}

func TestExecuteBlockedAbortsCycle(t *testing.T) {
	blocked := &fakeStrategy{
		name: "structured_api",
		page: &domain.RawPage{Strategy: "structured_api", StatusCode: 403},
	}
	next := &fakeStrategy{name: "markup_scrape"}

	manager := newTestManager()
	uc := buildPipeline(manager, blocked, next)

	result, err := uc.Execute(context.Background())
	if !errors.Is(err, domain.ErrBlocked) {
		t.Fatalf("err = %v; want wrapped ErrBlocked", err)
	}
	if result.Outcome != domain.OutcomeExhausted {
		t.Errorf("Outcome = %s; want exhausted", result.Outcome)
	}
	if next.calls != 0 {
		t.Error("block must abort the cycle, not fall through to the next strategy")
	}
	if !manager.InCooldown() {
		t.Error("block must arm the cooldown")
	}

	// Следующий цикл внутри кулдауна пропускается без единого запроса.
	result, err = uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeSkippedCooldown {
		t.Errorf("Outcome = %s; want skipped_due_to_cooldown", result.Outcome)
	}
	if blocked.calls != 1 {
		t.Errorf("blocked strategy calls = %d; want 1", blocked.calls)
	}
}

func TestExecuteExhaustsAllStrategies(t *testing.T) {
	a := &fakeStrategy{name: "structured_api", err: errors.New("timeout")}
	b := &fakeStrategy{name: "markup_scrape", page: &domain.RawPage{StatusCode: 200}}
	c := &fakeStrategy{name: "browser_emulation", err: errors.New("chrome crashed")}

	uc := buildPipeline(newTestManager(), a, b, c)

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeExhausted {
		t.Errorf("Outcome = %s; want exhausted", result.Outcome)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = %d/%d/%d; every strategy must get one attempt", a.calls, b.calls, c.calls)
	}
}

func TestExecuteSuccessResetsRecovery(t *testing.T) {
	// Серия блокировок числится, но кулдаун уже истек.
	state := domain.NewBlockState()
	state.ConsecutiveBlocks = 2
	state.TotalBlocks = 2
	manager := recovery.NewManager(state, nil, 30*time.Minute, nopSessionStore{})

	strategy := &fakeStrategy{
		name: "structured_api",
		page: &domain.RawPage{StatusCode: 200, Items: []domain.RawItem{qualifyingItem()}},
	}
	uc := buildPipeline(manager, strategy)

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess {
		t.Fatalf("Outcome = %s; want success", result.Outcome)
	}
	if manager.ConsecutiveBlocks() != 0 {
		t.Error("successful cycle must reset the consecutive block counter")
	}
	if manager.TotalBlocks() != 2 {
		t.Error("lifetime block counter must survive recovery")
	}
}

func TestExecuteFiltersUnqualifiedItems(t *testing.T) {
	expensive := qualifyingItem()
	expensive.ID = json.Number("77")
	expensive.PriceDetailing.Value = 120000

	strategy := &fakeStrategy{
		name: "structured_api",
		page: &domain.RawPage{
			StatusCode: 200,
			Items:      []domain.RawItem{qualifyingItem(), expensive},
		},
	}

	uc := buildPipeline(newTestManager(), strategy)

	result, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(result.Listings) != 1 {
		t.Fatalf("Listings = %d; want only the qualifying one", len(result.Listings))
	}
	if result.Listings[0].SourceID != "42" {
		t.Errorf("SourceID = %q; want 42", result.Listings[0].SourceID)
	}
}
