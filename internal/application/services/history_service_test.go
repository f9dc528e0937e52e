package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/domain/entities"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/cache"
	"github.com/bimakw/usdc-dashboard/internal/testutil"
)

func setupHistoryTest() (*HistoryService, *testutil.MockDataSource) {
	source := testutil.NewMockDataSource()
	transferCache := cache.NewTransferCache(2*time.Minute, zap.NewNop())
	service := NewHistoryService(source, transferCache, 6, 100, zap.NewNop())
	return service, source
}

func TestHistoryService_GetTransfers_ReadThrough(t *testing.T) {
	service, source := setupHistoryTest()
	source.AddTransfers(testutil.CreateMultipleTransfers(3)...)

	first, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 1, 100, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Transfers) != 3 {
		t.Errorf("expected 3 transfers, got %d", len(first.Transfers))
	}
	if first.Cached {
		t.Error("first read must come from the data source")
	}

	second, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 1, 100, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Error("second read must be served from the cache")
	}
	if source.TransferCalls != 1 {
		t.Errorf("expected a single data source call, got %d", source.TransferCalls)
	}
}

func TestHistoryService_GetTransfers_ForceRefresh(t *testing.T) {
	service, source := setupHistoryTest()
	source.AddTransfers(testutil.CreateTestTransfer())

	if _, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 1, 100, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 1, 100, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Cached {
		t.Error("force refresh must bypass the cache")
	}
	if source.TransferCalls != 2 {
		t.Errorf("expected 2 data source calls, got %d", source.TransferCalls)
	}
}

func TestHistoryService_GetTransfers_DeepPagesBypassCache(t *testing.T) {
	service, source := setupHistoryTest()
	source.AddTransfers(testutil.CreateTestTransfer())

	for i := 0; i < 2; i++ {
		resp, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 2, 100, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Cached {
			t.Error("deep pages must not be served from the cache")
		}
	}
	if source.TransferCalls != 2 {
		t.Errorf("expected 2 data source calls, got %d", source.TransferCalls)
	}
}

func TestHistoryService_GetTransfers_NormalizesPaging(t *testing.T) {
	service, _ := setupHistoryTest()

	resp, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 0, -5, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Page != 1 || resp.Offset != 100 {
		t.Errorf("expected page 1 offset 100, got page %d offset %d", resp.Page, resp.Offset)
	}
}

func TestHistoryService_GetTransfers_SourceError(t *testing.T) {
	service, source := setupHistoryTest()
	source.GetTransfersFunc = func(ctx context.Context, address string, page, offset int) ([]entities.Transfer, error) {
		return nil, errors.New("rate limited")
	}

	if _, err := service.GetTransfers(context.Background(), testutil.AliceAddress, 1, 100, false); err == nil {
		t.Fatal("expected error")
	}
}

func TestHistoryService_GetBalance(t *testing.T) {
	service, source := setupHistoryTest()
	source.SetBalance("123456789")

	resp, err := service.GetBalance(context.Background(), testutil.AliceAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Balance != "123456789" {
		t.Errorf("unexpected raw balance: %s", resp.Balance)
	}
	if resp.BalanceFormatted != "123.456789" {
		t.Errorf("unexpected formatted balance: %s", resp.BalanceFormatted)
	}
}

func TestHistoryService_Metrics(t *testing.T) {
	service, source := setupHistoryTest()
	service.now = func() time.Time {
		return time.Date(2023, time.November, 15, 12, 0, 0, 0, time.UTC)
	}
	source.AddTransfers(
		testutil.CreateTestTransfer(testutil.WithValue("1000000"), testutil.WithTimeStamp("1700000000")),
		testutil.CreateTestTransfer(testutil.WithValue("3000000"), testutil.WithTimeStamp("1699990000")),
	)

	metrics, err := service.Metrics(context.Background(), testutil.AliceAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.TotalTransactions != 2 {
		t.Errorf("expected 2 transactions, got %d", metrics.TotalTransactions)
	}
	if metrics.TotalVolume != "4.00" {
		t.Errorf("unexpected total volume: %s", metrics.TotalVolume)
	}
	if metrics.AverageAmount != "2.00" {
		t.Errorf("unexpected average: %s", metrics.AverageAmount)
	}
	if metrics.LastTransfer == nil || metrics.LastTransfer.Value != "1000000" {
		t.Errorf("unexpected last transfer: %+v", metrics.LastTransfer)
	}
	if len(metrics.Daily) != 30 {
		t.Fatalf("expected 30 daily buckets, got %d", len(metrics.Daily))
	}

	// 1700000000 and 1699990000 both fall on 2023-11-14 UTC.
	var found bool
	for _, day := range metrics.Daily {
		if day.Date == "Nov 14" {
			found = true
			if day.Count != 2 {
				t.Errorf("expected 2 transfers on Nov 14, got %d", day.Count)
			}
			if day.Volume != 4.0 {
				t.Errorf("expected volume 4.0 on Nov 14, got %f", day.Volume)
			}
		} else if day.Count != 0 {
			t.Errorf("unexpected count on %s: %d", day.Date, day.Count)
		}
	}
	if !found {
		t.Error("Nov 14 bucket missing from the series")
	}
}

func TestHistoryService_Metrics_Empty(t *testing.T) {
	service, _ := setupHistoryTest()

	metrics, err := service.Metrics(context.Background(), testutil.AliceAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.TotalTransactions != 0 {
		t.Errorf("expected 0 transactions, got %d", metrics.TotalTransactions)
	}
	if metrics.TotalVolume != "0.00" || metrics.AverageAmount != "0.00" {
		t.Errorf("expected zero amounts, got %+v", metrics)
	}
	if metrics.LastTransfer != nil {
		t.Error("expected no last transfer")
	}
	if len(metrics.Daily) != 30 {
		t.Errorf("expected 30 daily buckets, got %d", len(metrics.Daily))
	}
}

func TestHistoryService_GetTransaction_NotFound(t *testing.T) {
	service, _ := setupHistoryTest()

	detail, err := service.GetTransaction(context.Background(), testutil.TestTxHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil detail, got %+v", detail)
	}
}
