package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRefundInsertError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    error
		wrapped bool
	}{
		{
			name: "nil error passes through",
			err:  nil,
			want: nil,
		},
		{
			name: "unique violation maps to already refunded",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "refunds_transaction_id_key"},
			want: ErrRefundAlreadyExists,
		},
		{
			name: "wrapped unique violation maps to already refunded",
			err:  fmt.Errorf("scan: %w", &pgconn.PgError{Code: "23505"}),
			want: ErrRefundAlreadyExists,
		},
		{
			name:    "other pg error is wrapped and surfaced",
			err:     &pgconn.PgError{Code: "23503"},
			wrapped: true,
		},
		{
			name:    "non-pg error is wrapped and surfaced",
			err:     errors.New("connection reset"),
			wrapped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := refundInsertError(tt.err)
			if tt.wrapped {
				if got == nil {
					t.Fatal("expected a wrapped error, got nil")
				}
				if errors.Is(got, ErrRefundAlreadyExists) {
					t.Fatalf("expected a plain failure, got already-refunded mapping: %v", got)
				}
				if !errors.Is(got, tt.err) {
					t.Fatalf("expected wrapped error to preserve the cause, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRefundFlipError(t *testing.T) {
	tests := []struct {
		name         string
		rowsAffected int64
		want         error
	}{
		{
			name:         "flip applied",
			rowsAffected: 1,
			want:         nil,
		},
		{
			name:         "concurrent refund won the flip",
			rowsAffected: 0,
			want:         ErrRefundAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := refundFlipError(tt.rowsAffected)
			if !errors.Is(got, tt.want) && got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
