package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fitpay-billing/internal/config"
	pg "fitpay-billing/internal/infra/db/postgres"
)

func main() {
	// ---- Config ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// If pending subscriptions already exist, do nothing
	var pending int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE status='pending'`).Scan(&pending); err != nil {
		log.Fatalf("count subscriptions: %v", err)
	}
	if pending > 0 {
		fmt.Printf("%d pending subscriptions already present. No changes.\n", pending)
		return
	}

	// Seed a few pending subscriptions for testing the webhook flow
	seed := []struct {
		UserID  string
		Service string
		Amount  int64
		Cur     string
	}{
		{"user-starter", "svc-coaching-weekly", 7500, "KWD"},   // 7.500 KWD
		{"user-pro", "svc-coaching-monthly", 25000, "KWD"},     // 25.000 KWD
		{"user-annual", "svc-coaching-annual", 240000, "KWD"},  // 240.000 KWD
	}

	now := time.Now().UTC()
	for _, s := range seed {
		id := uuid.NewString()
		_, err := pool.Exec(ctx, `
			INSERT INTO subscriptions (
				id, user_id, service_id, status, billing_amount_minor, currency,
				failed_charges, created_at, updated_at
			) VALUES ($1, $2, $3, 'pending', $4, $5, 0, $6, $6);`,
			id, s.UserID, s.Service, s.Amount, s.Cur, now)
		if err != nil {
			log.Fatalf("seed subscription %q: %v", s.UserID, err)
		}
		fmt.Printf("seeded: %s (id=%s, service=%s, amount=%d %s)\n", s.UserID, id, s.Service, s.Amount, s.Cur)
	}

	fmt.Println("Seeding complete.")
}
