package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/config"
	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/events"
	"github.com/kitchenops/backend/internal/repository/memory"
)

const (
	feijoadaID = 1
	moquecaID  = 2
)

// today is a Sunday; 2024-03-18 is the Monday before it
var today = time.Date(2024, 3, 24, 15, 30, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func quietLogger() *logrus.Logger {
	return config.NewLogger("error", io.Discard)
}

func newRepo() *memory.Repository {
	repo := memory.NewRepository()
	repo.AddMenuItem(feijoadaID, "Feijoada")
	repo.AddDish(moquecaID, "Moqueca")
	return repo
}

// seedDaily stores one sale per day starting at first, one quantity per day
func seedDaily(t *testing.T, repo *memory.Repository, item domain.ItemRef, first time.Time, quantities []int, sc domain.SaleContext) {
	t.Helper()
	for i, q := range quantities {
		rec, err := domain.NewSalesRecord(first.AddDate(0, 0, i), item, q, decimal.RequireFromString("12.50"), sc)
		if err != nil {
			t.Fatalf("NewSalesRecord: %v", err)
		}
		if err := repo.InsertSale(context.Background(), rec); err != nil {
			t.Fatalf("InsertSale: %v", err)
		}
	}
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func int64Ptr(v int64) *int64 { return &v }

func assertKind(t *testing.T, err error, want domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("kind=%s want %s (err=%v)", got, want, err)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ForecastGenerated
	err    error
}

func (p *recordingPublisher) PublishForecast(_ context.Context, ev events.ForecastGenerated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) published() []events.ForecastGenerated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.ForecastGenerated(nil), p.events...)
}

var errBroker = errors.New("broker unavailable")
