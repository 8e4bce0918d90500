package storage_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsmycelium/gateway/internal/storage"
)

func BenchmarkWithTenantContext(b *testing.B) {
	dsn := os.Getenv("MYCELIUM_TEST_DATABASE_URL")
	if dsn == "" {
		b.Skip("MYCELIUM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		b.Fatal(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	tenantID := uuid.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := storage.WithTenantContext(ctx, pool, tenantID, func(tx pgx.Tx) error {
			// Simulate a simple query
			var val int
			return tx.QueryRow(ctx, "SELECT 1").Scan(&val)
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWithoutContext(b *testing.B) {
	dsn := os.Getenv("MYCELIUM_TEST_DATABASE_URL")
	if dsn == "" {
		b.Skip("MYCELIUM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		b.Fatal(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tx, err := pool.Begin(ctx)
		if err != nil {
			b.Fatal(err)
		}

		var val int
		err = tx.QueryRow(ctx, "SELECT 1").Scan(&val)
		if err != nil {
			tx.Rollback(ctx)
			b.Fatal(err)
		}

		err = tx.Commit(ctx)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWithoutRLS(b *testing.B) {
	dsn := os.Getenv("MYCELIUM_TEST_DATABASE_URL")
	if dsn == "" {
		b.Skip("MYCELIUM_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		b.Fatal(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := storage.WithoutRLS(ctx, pool, func(tx pgx.Tx) error {
			var val int
			return tx.QueryRow(ctx, "SELECT 1").Scan(&val)
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
