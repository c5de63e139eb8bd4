package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pegfee/internal/pricemath"
)

func TestWithRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d", attempts)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		return errors.New("down")
	})
	if err == nil || attempts != 3 {
		t.Fatalf("expected 3 attempts and an error, got %d %v", attempts, err)
	}
}

func TestWithRetrySkipsDomainErrors(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		attempts++
		return fmt.Errorf("convert: %w", pricemath.ErrDomain)
	})
	if !errors.Is(err, pricemath.ErrDomain) || attempts != 1 {
		t.Fatalf("expected a single attempt with domain error, got %d %v", attempts, err)
	}
}

func TestWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Hour, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
