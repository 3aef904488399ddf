package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxDup := &pgconn.PgError{Code: "23505", ConstraintName: "inventory_records_pkey"}
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx", err: fmt.Errorf("create record: %w", pgxDup), want: true},
		{name: "pgx named", err: pgxDup, constraint: "inventory_records_pkey", want: true},
		{name: "pgx other constraint", err: pgxDup, constraint: "cart_items_pkey", want: false},
		{name: "pgx check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
		{name: "pq", err: &pq.Error{Code: "23505", Constraint: "inventory_records_pkey"}, want: true},
		{name: "sqlite", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, want: true},
		{name: "sqlite not null", err: sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}, want: false},
		{name: "postgres text", err: errors.New(`ERROR: duplicate key value violates unique constraint "inventory_records_pkey"`), want: true},
		{name: "sqlite text", err: errors.New("UNIQUE constraint failed: inventory_records.product_id"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
