package storage

import (
	"context"
	"errors"

	"pegfee/internal/model"
)

// Storage defines a sink for fee quotes.
type Storage interface {
	PutQuoteBatch(ctx context.Context, quotes []model.FeeQuote) error
}

// Multi fans a batch out to every sink and joins their errors.
type Multi []Storage

func (m Multi) PutQuoteBatch(ctx context.Context, quotes []model.FeeQuote) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutQuoteBatch(ctx, quotes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
