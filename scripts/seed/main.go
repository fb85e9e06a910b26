// Package main implements a standalone seed script that populates the store
// with a small realistic catalog for local development. It writes directly to
// PostgreSQL; run the server at least once first so migrations exist.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type seedProduct struct {
	name         string
	description  string
	price        int64
	stock        int
	stockTracked bool
}

var catalog = []seedProduct{
	{"Yirgacheffe Coffee Beans 500g", "Single origin, light roast", 28500, 40, true},
	{"Ceramic Pour-Over Dripper", "02 size, fits standard filters", 19900, 25, true},
	{"Paper Filters x100", "Bleached, 02 size", 4500, 200, true},
	{"Digital Brewing Scale", "0.1g resolution with timer", 52000, 12, true},
	{"Gooseneck Kettle 1L", "Stainless steel, stovetop", 64000, 8, true},
	{"Cold Brew Bottle", "1L, borosilicate glass", 31500, 15, true},
	{"Barista Course Voucher", "Online course, redeemable code", 90000, 0, false},
	{"Gift Card 500", "Digital delivery", 50000, 0, false},
}

func main() {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "nileshop"),
		getEnv("POSTGRES_PASSWORD", "nileshop_secret"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "nileshop"),
		getEnv("POSTGRES_SSL_MODE", "disable"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	inserted := 0
	for _, p := range catalog {
		tag, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, description, price, currency, stock, stock_tracked, is_active, created_at, updated_at)
			SELECT $1, $2, $3, $4, 'EGP', $5, $6, TRUE, NOW(), NOW()
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $2)`,
			uuid.New().String(), p.name, p.description, p.price, p.stock, p.stockTracked,
		)
		if err != nil {
			log.Fatalf("insert product %q: %v", p.name, err)
		}
		inserted += int(tag.RowsAffected())
	}

	log.Printf("seed complete: %d products inserted, %d already present", inserted, len(catalog)-inserted)
}
