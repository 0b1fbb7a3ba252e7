package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"fitpay-billing/internal/config"
	"fitpay-billing/internal/infra/db/postgres"
	"fitpay-billing/internal/infra/redis"
)

// This script sets up a clean, predictable database state for manual
// end-to-end webhook testing: schema, one pending subscription per test
// currency, and a reusable discount code.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis rate-limit state, if Redis is configured.
	if cfg.Redis.URL != "" {
		log.Println("[1/4] Wiping Redis state...")
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		if err := redisClient.FlushDB(ctx); err != nil {
			log.Fatalf("failed to flush redis: %v", err)
		}
		_ = redisClient.Close()
	} else {
		log.Println("[1/4] Redis not configured, skipping")
	}

	// 2. Ensure the schema exists.
	log.Println("[2/4] Creating schema...")
	if _, err := pool.Exec(ctx, postgres.Schema); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	// 3. Clean the database completely.
	log.Println("[3/4] Wiping all existing data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE
			subscriptions, processed_events, subscription_payments,
			webhook_audit, discount_codes, discount_redemptions
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 4. Seed predictable test data.
	log.Println("[4/4] Seeding test subscriptions...")
	seedSubscriptions(ctx, pool)

	log.Println("--- E2E Environment Setup Complete ---")
}

func seedSubscriptions(ctx context.Context, pool *pgxpool.Pool) {
	now := time.Now().UTC()

	discountID := uuid.NewString()
	_, err := pool.Exec(ctx, `
		INSERT INTO discount_codes (id, code, percent_off, cycles_total, cycles_used, created_at)
		VALUES ($1, 'COACH20', 20, 3, 0, $2);`, discountID, now)
	if err != nil {
		log.Printf("failed to seed discount code: %v", err)
	}

	// One pending subscription per currency exercised in manual testing.
	seeds := []struct {
		userID string
		amount int64
		cur    string
		disc   *string
	}{
		{"user-kwd", 25000, "KWD", &discountID}, // 25.000 KWD
		{"user-usd", 4999, "USD", nil},          // 49.99 USD
		{"user-jpy", 5000, "JPY", nil},          // 5000 JPY
	}
	for _, s := range seeds {
		id := uuid.NewString()
		_, err := pool.Exec(ctx, `
			INSERT INTO subscriptions (
				id, user_id, service_id, status, billing_amount_minor, currency,
				discount_id, failed_charges, created_at, updated_at
			) VALUES ($1, $2, $3, 'pending', $4, $5, $6, 0, $7, $7);`,
			id, s.userID, "svc-coaching-monthly", s.amount, s.cur, s.disc, now)
		if err != nil {
			log.Printf("failed to seed subscription for %s: %v", s.userID, err)
			continue
		}
		log.Printf("seeded subscription id=%s user=%s amount=%d %s", id, s.userID, s.amount, s.cur)
	}
}
