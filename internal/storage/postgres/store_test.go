package postgres

import (
	"context"
	"testing"
)

func TestNullableHelpers(t *testing.T) {
	if nullableNumeric("") != nil {
		t.Fatalf("empty numeric should be NULL")
	}
	if got := nullableNumeric("42"); got == nil || *got != "42" {
		t.Fatalf("numeric mismatch: %v", got)
	}
	if nullableInt(0) != nil {
		t.Fatalf("zero int should be NULL")
	}
	if got := nullableInt(7); got == nil || *got != 7 {
		t.Fatalf("int mismatch: %v", got)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
