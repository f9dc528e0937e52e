package services

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/usdc-dashboard/internal/domain/entities"
	"github.com/bimakw/usdc-dashboard/internal/format"
	"github.com/bimakw/usdc-dashboard/internal/infrastructure/cache"
)

// metricsWindowDays is the length of the daily volume series.
const metricsWindowDays = 30

// DetailSource extends DataSource with the proxy transaction lookups used
// by the transaction detail view.
type DetailSource interface {
	DataSource
	GetTransaction(ctx context.Context, txHash string) (*entities.TransactionDetail, error)
	GetTransactionReceipt(ctx context.Context, txHash string) (*entities.TransactionReceipt, error)
}

// DailyVolume is one day's bucket in the dashboard volume chart.
type DailyVolume struct {
	Date   string  `json:"date"`
	Volume float64 `json:"volume"`
	Count  int     `json:"count"`
}

// DashboardMetrics summarizes the recent transfer activity of an address.
type DashboardMetrics struct {
	TotalTransactions int                `json:"total_transactions"`
	TotalVolume       string             `json:"total_volume"`
	AverageAmount     string             `json:"average_amount"`
	LastTransfer      *entities.Transfer `json:"last_transfer,omitempty"`
	Daily             []DailyVolume      `json:"daily"`
}

// TransferListResponse is the API response for transfer history queries.
type TransferListResponse struct {
	Transfers []entities.Transfer `json:"transfers"`
	Page      int                 `json:"page"`
	Offset    int                 `json:"offset"`
	Cached    bool                `json:"cached"`
}

// BalanceResponse is the API response for token balance queries.
type BalanceResponse struct {
	Address          string `json:"address"`
	Balance          string `json:"balance"`
	BalanceFormatted string `json:"balance_formatted"`
}

// HistoryService provides transfer history and dashboard metrics, reading
// through the short-TTL transfer cache.
type HistoryService struct {
	source   DetailSource
	cache    *cache.TransferCache
	decimals int
	pageSize int
	logger   *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewHistoryService creates a new history service.
func NewHistoryService(source DetailSource, transferCache *cache.TransferCache, decimals, pageSize int, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		source:   source,
		cache:    transferCache,
		decimals: decimals,
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
	}
}

// GetTransfers returns a page of transfers for an address. The first page
// is served through the cache; forceRefresh invalidates the entry first.
// Deeper pages always go to the data source.
func (s *HistoryService) GetTransfers(ctx context.Context, address string, page, offset int, forceRefresh bool) (*TransferListResponse, error) {
	if page < 1 {
		page = 1
	}
	if offset < 1 || offset > 1000 {
		offset = s.pageSize
	}

	if page > 1 {
		transfers, err := s.source.GetTransfers(ctx, address, page, offset)
		if err != nil {
			return nil, fmt.Errorf("fetching transfers: %w", err)
		}
		return &TransferListResponse{Transfers: transfers, Page: page, Offset: offset}, nil
	}

	if forceRefresh {
		s.cache.Invalidate(address)
	}

	cached := true
	transfers, err := s.cache.GetOrFetch(ctx, address, func(ctx context.Context, addr string) ([]entities.Transfer, error) {
		cached = false
		return s.source.GetTransfers(ctx, addr, 1, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching transfers: %w", err)
	}

	return &TransferListResponse{Transfers: transfers, Page: page, Offset: offset, Cached: cached}, nil
}

// GetBalance returns the token balance of an address, raw and formatted.
func (s *HistoryService) GetBalance(ctx context.Context, address string) (*BalanceResponse, error) {
	raw, err := s.source.GetBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}

	formatted, err := format.ToDisplayAmount(raw, s.decimals)
	if err != nil {
		return nil, fmt.Errorf("formatting balance: %w", err)
	}

	return &BalanceResponse{
		Address:          address,
		Balance:          raw,
		BalanceFormatted: formatted,
	}, nil
}

// GetTransaction looks up a submitted transaction by hash.
func (s *HistoryService) GetTransaction(ctx context.Context, txHash string) (*entities.TransactionDetail, error) {
	return s.source.GetTransaction(ctx, txHash)
}

// GetTransactionReceipt looks up a transaction receipt by hash.
func (s *HistoryService) GetTransactionReceipt(ctx context.Context, txHash string) (*entities.TransactionReceipt, error) {
	return s.source.GetTransactionReceipt(ctx, txHash)
}

// Metrics computes dashboard metrics over the most recent page of
// transfers: totals, average and a 30-day daily volume series.
func (s *HistoryService) Metrics(ctx context.Context, address string) (*DashboardMetrics, error) {
	resp, err := s.GetTransfers(ctx, address, 1, s.pageSize, false)
	if err != nil {
		return nil, err
	}
	transfers := resp.Transfers

	metrics := &DashboardMetrics{
		TotalTransactions: len(transfers),
		TotalVolume:       "0.00",
		AverageAmount:     "0.00",
		Daily:             s.dailyVolume(transfers),
	}
	if len(transfers) == 0 {
		return metrics, nil
	}

	total := new(big.Int)
	for _, t := range transfers {
		v, ok := new(big.Int).SetString(t.Value, 10)
		if !ok {
			s.logger.Warn("Skipping transfer with unparseable value",
				zap.String("hash", t.Hash),
				zap.String("value", t.Value),
			)
			continue
		}
		total.Add(total, v)
	}
	average := new(big.Int).Quo(total, big.NewInt(int64(len(transfers))))

	if metrics.TotalVolume, err = format.ToDisplayAmount(total.String(), s.decimals); err != nil {
		return nil, err
	}
	if metrics.AverageAmount, err = format.ToDisplayAmount(average.String(), s.decimals); err != nil {
		return nil, err
	}

	last := transfers[0]
	metrics.LastTransfer = &last

	return metrics, nil
}

// dailyVolume buckets transfers into the trailing 30 days (UTC).
func (s *HistoryService) dailyVolume(transfers []entities.Transfer) []DailyVolume {
	type bucket struct {
		volume *big.Int
		count  int
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	buckets := make(map[string]*bucket, metricsWindowDays)
	days := make([]time.Time, 0, metricsWindowDays)
	for i := metricsWindowDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		days = append(days, day)
		buckets[day.Format("2006-01-02")] = &bucket{volume: new(big.Int)}
	}

	for _, t := range transfers {
		secs, err := strconv.ParseInt(t.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		key := time.Unix(secs, 0).UTC().Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			continue
		}
		if v, ok := new(big.Int).SetString(t.Value, 10); ok {
			b.volume.Add(b.volume, v)
			b.count++
		}
	}

	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.decimals)), nil))
	series := make([]DailyVolume, 0, metricsWindowDays)
	for _, day := range days {
		b := buckets[day.Format("2006-01-02")]
		volume, _ := new(big.Float).Quo(new(big.Float).SetInt(b.volume), scale).Float64()
		series = append(series, DailyVolume{
			Date:   day.Format("Jan 02"),
			Volume: volume,
			Count:  b.count,
		})
	}
	return series
}
