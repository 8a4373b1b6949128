package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/config"
	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/metrics"
)

// importBatchSize bounds how many parsed rows are buffered before a bulk insert
const importBatchSize = 1000

// RecordSaleInput is one manually entered sale
type RecordSaleInput struct {
	Date      time.Time
	Item      domain.ItemRef
	Quantity  int `validate:"gte=0"`
	UnitPrice decimal.Decimal
	Context   domain.SaleContext
}

// SalesService owns the sales history: manual entry, listing and CSV/XLSX exchange
type SalesService struct {
	repo    DataRepository
	metrics *metrics.Registry
	logger  *logrus.Logger
}

// NewSalesService creates a sales service. reg may be nil.
func NewSalesService(repo DataRepository, reg *metrics.Registry, logger *logrus.Logger) *SalesService {
	if logger == nil {
		logger = config.NewLogger("info", io.Discard)
	}
	return &SalesService{repo: repo, metrics: reg, logger: logger}
}

// RecordSale validates and stores a single sale
func (s *SalesService) RecordSale(ctx context.Context, in RecordSaleInput) (domain.SalesRecord, error) {
	if err := validateStruct(in); err != nil {
		return domain.SalesRecord{}, err
	}
	rec, err := domain.NewSalesRecord(in.Date, in.Item, in.Quantity, in.UnitPrice, in.Context)
	if err != nil {
		return domain.SalesRecord{}, err
	}

	exists, err := domain.ItemExists(ctx, s.repo, in.Item)
	if err != nil {
		return domain.SalesRecord{}, internal("sales: item lookup", err)
	}
	if !exists {
		return domain.SalesRecord{}, fmt.Errorf("%w: %s does not exist", domain.ErrNotFound, in.Item)
	}
	if name, err := domain.ItemName(ctx, s.repo, in.Item); err == nil {
		rec.ItemName = name
	}

	if err := s.repo.InsertSale(ctx, rec); err != nil {
		return domain.SalesRecord{}, internal("sales: insert", err)
	}
	s.metrics.ObserveSale()
	return *rec, nil
}

// GetSale returns one record
func (s *SalesService) GetSale(ctx context.Context, id uuid.UUID) (domain.SalesRecord, error) {
	rec, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.SalesRecord{}, internal("sales: get", err)
	}
	return rec, nil
}

// DeleteSale removes a record. A correction is a delete followed by a new insert.
func (s *SalesService) DeleteSale(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteSale(ctx, id); err != nil {
		return internal("sales: delete", err)
	}
	s.logger.WithFields(logrus.Fields{"module": "service", "func": "DeleteSale", "sale_id": id}).Info("sale deleted")
	return nil
}

// ListSales pages through filtered records, newest first
func (s *SalesService) ListSales(ctx context.Context, filter domain.SalesFilter, page domain.Pagination) (domain.Page[domain.SalesRecord], error) {
	if err := checkSalesFilter(filter); err != nil {
		return domain.Page[domain.SalesRecord]{}, err
	}
	out, err := s.repo.ListSales(ctx, filter, page.Normalize())
	if err != nil {
		return domain.Page[domain.SalesRecord]{}, internal("sales: list", err)
	}
	return out, nil
}

// CountSince counts records dated on or after from and publishes the gauge
func (s *SalesService) CountSince(ctx context.Context, from time.Time) (int, error) {
	n, err := s.repo.CountSalesSince(ctx, from)
	if err != nil {
		return 0, internal("sales: count_since", err)
	}
	s.metrics.ObserveSalesSince(n)
	return n, nil
}

// eachSale walks every record matching filter, one page at a time
func (s *SalesService) eachSale(ctx context.Context, filter domain.SalesFilter, fn func(domain.SalesRecord) error) error {
	if err := checkSalesFilter(filter); err != nil {
		return err
	}
	page := domain.Pagination{Page: 1, PageSize: domain.MaxPageSize}
	for {
		res, err := s.repo.ListSales(ctx, filter, page)
		if err != nil {
			return internal("sales: export", err)
		}
		for _, rec := range res.Items {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(res.Items) < page.PageSize || page.Page*page.PageSize >= res.Total {
			return nil
		}
		page.Page++
	}
}

// names caches catalog names for export and import
type names struct {
	repo   domain.Catalog
	cache  map[domain.ItemRef]string
	exists map[domain.ItemRef]bool
}

func newNames(repo domain.Catalog) *names {
	return &names{repo: repo, cache: make(map[domain.ItemRef]string), exists: make(map[domain.ItemRef]bool)}
}

// name is best effort; lookup failures yield an empty name
func (n *names) name(ctx context.Context, item domain.ItemRef) string {
	if v, ok := n.cache[item]; ok {
		return v
	}
	v, err := domain.ItemName(ctx, n.repo, item)
	if err != nil {
		v = ""
	}
	n.cache[item] = v
	return v
}

func (n *names) exist(ctx context.Context, item domain.ItemRef) (bool, error) {
	if v, ok := n.exists[item]; ok {
		return v, nil
	}
	v, err := domain.ItemExists(ctx, n.repo, item)
	if err != nil {
		return false, err
	}
	n.exists[item] = v
	return v, nil
}

func checkSalesFilter(f domain.SalesFilter) error {
	if f.Item != nil {
		if err := f.Item.Validate(); err != nil {
			return err
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: to must not be before from", domain.ErrValidation)
	}
	return nil
}
