package storage

import (
	"context"
	"errors"

	"pumpCurve/internal/model"
)

// Storage defines a sink for trade receipts.
type Storage interface {
	PutReceipts(ctx context.Context, receipts []model.TradeReceipt) error
}

// Fanout writes every batch to each sink and joins their errors.
type Fanout []Storage

func (f Fanout) PutReceipts(ctx context.Context, receipts []model.TradeReceipt) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.PutReceipts(ctx, receipts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
