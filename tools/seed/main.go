package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn         string
	userCount   int
	sitesPer    int
	devicesPer  int
	metricHours int
}

var deviceTypes = []string{"pv_panel", "wind_turbine", "battery", "inverter"}

var metricTypes = []string{"power_output", "voltage", "current", "charge_level", "temperature"}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := seed(ctx, db, cfg); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed completed: users=%d sites/user=%d devices/site=%d metric hours=%d",
		cfg.userCount, cfg.sitesPer, cfg.devicesPer, cfg.metricHours)
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.IntVar(&cfg.userCount, "users", envOrInt("SEED_USERS", 4), "number of users to seed")
	flag.IntVar(&cfg.sitesPer, "sites-per-user", envOrInt("SEED_SITES_PER_USER", 2), "sites per user")
	flag.IntVar(&cfg.devicesPer, "devices-per-site", envOrInt("SEED_DEVICES_PER_SITE", 3), "devices per site")
	flag.IntVar(&cfg.metricHours, "metric-hours", envOrInt("SEED_METRIC_HOURS", 48), "hours of backdated readings per device metric")
	flag.Parse()
	return cfg
}

// seed writes deterministic fixtures so repeated runs land on the same
// ids. Odd-numbered users get the technical tier, even ones stay viewers.
func seed(ctx context.Context, db *sql.DB, cfg config) error {
	now := time.Now().UTC().Truncate(time.Hour)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for u := 1; u <= cfg.userCount; u++ {
		userID := fmt.Sprintf("user-%04d", u)
		level := "viewer"
		if u%2 == 1 {
			level = "technical"
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users (id, email, access_level)
VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET access_level = EXCLUDED.access_level`,
			userID, fmt.Sprintf("%s@example.com", userID), level); err != nil {
			_ = tx.Rollback()
			return err
		}

		for s := 1; s <= cfg.sitesPer; s++ {
			siteID := fmt.Sprintf("site-%04d-%02d", u, s)
			if _, err := tx.ExecContext(ctx, `
INSERT INTO sites (id, name, user_id)
VALUES ($1,$2,$3)
ON CONFLICT (id) DO NOTHING`,
				siteID, fmt.Sprintf("Site %d of %s", s, userID), userID); err != nil {
				_ = tx.Rollback()
				return err
			}

			for d := 1; d <= cfg.devicesPer; d++ {
				deviceID := fmt.Sprintf("device-%04d-%02d-%02d", u, s, d)
				deviceType := deviceTypes[(d-1)%len(deviceTypes)]
				if _, err := tx.ExecContext(ctx, `
INSERT INTO devices (id, name, site_id, device_type)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO NOTHING`,
					deviceID, fmt.Sprintf("%s %d", deviceType, d), siteID, deviceType); err != nil {
					_ = tx.Rollback()
					return err
				}

				if err := seedReadings(ctx, tx, deviceID, now, cfg.metricHours); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
		}
	}

	return tx.Commit()
}

func seedReadings(ctx context.Context, tx *sql.Tx, deviceID string, now time.Time, hours int) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO device_metrics (time, device_id, metric_type, value)
VALUES ($1,$2,$3,$4)
ON CONFLICT (time, device_id, metric_type) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for h := 0; h < hours; h++ {
		ts := now.Add(-time.Duration(h) * time.Hour)
		for i, metricType := range metricTypes {
			value := float64((h%24)+1)*1.5 + float64(i)*0.25
			if _, err := stmt.ExecContext(ctx, ts, deviceID, metricType, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
