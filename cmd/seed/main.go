package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booklane/slot-reservation/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	salonID := uuid.New()
	if err := seedSalon(context.Background(), pool, salonID); err != nil {
		log.Fatalf("seed salon: %v", err)
	}

	staffIDs, err := seedStaff(context.Background(), pool, salonID, 8)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	if err := seedServiceVariants(context.Background(), pool, salonID, staffIDs); err != nil {
		log.Fatalf("seed service variants: %v", err)
	}

	log.Printf("seed complete salon_id=%s staff=%d", salonID, len(staffIDs))
}

func seedSalon(ctx context.Context, pool *pgxpool.Pool, salonID uuid.UUID) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO salons (id, name, timezone, created_at)
		VALUES ($1, $2, $3, now())
	`, salonID, gofakeit.Company()+" Beauty Studio", "Europe/Warsaw")
	return err
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, salonID uuid.UUID, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff members", count)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		staffID := uuid.New()

		_, err := pool.Exec(ctx, `
			INSERT INTO staff (id, salon_id, name, active, created_at)
			VALUES ($1, $2, $3, true, now())
		`, staffID, salonID, gofakeit.Name())
		if err != nil {
			return nil, err
		}

		// Monday through Friday, 09:00-17:00, plus a short Saturday
		for day := 1; day <= 5; day++ {
			_, err := pool.Exec(ctx, `
				INSERT INTO working_hours (staff_id, salon_id, day_of_week, start_min, end_min)
				VALUES ($1, $2, $3, $4, $5)
			`, staffID, salonID, day, 9*60, 17*60)
			if err != nil {
				return nil, err
			}
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO working_hours (staff_id, salon_id, day_of_week, start_min, end_min)
			VALUES ($1, $2, 6, $3, $4)
		`, staffID, salonID, 10*60, 14*60)
		if err != nil {
			return nil, err
		}

		if err := seedOverride(ctx, pool, salonID, staffID); err != nil {
			return nil, err
		}

		ids = append(ids, staffID)
	}
	return ids, nil
}

// seedOverride gives each staff member one date-specific schedule in the
// next two weeks: half work a shortened day, half are off entirely (an
// explicit empty window list).
func seedOverride(ctx context.Context, pool *pgxpool.Pool, salonID, staffID uuid.UUID) error {
	date := time.Now().AddDate(0, 0, gofakeit.Number(1, 14)).Format("2006-01-02")

	windows := []map[string]string{}
	if gofakeit.Bool() {
		windows = append(windows, map[string]string{"start": "12:00", "end": "16:00"})
	}
	raw, err := json.Marshal(windows)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO schedule_overrides (staff_id, salon_id, override_date, windows)
		VALUES ($1, $2, $3, $4)
	`, staffID, salonID, date, raw)
	return err
}

func seedServiceVariants(ctx context.Context, pool *pgxpool.Pool, salonID uuid.UUID, staffIDs []uuid.UUID) error {
	services := []struct {
		name     string
		variants []string
		duration int
		bufAfter int
	}{
		{"Haircut", []string{"short", "long"}, 45, 10},
		{"Coloring", []string{"full", "roots"}, 90, 15},
		{"Manicure", []string{"classic", "gel"}, 60, 5},
		{"Facial", []string{"express", "deluxe"}, 30, 10},
	}

	log.Printf("seeding %d services", len(services))

	for i, svc := range services {
		serviceID := uuid.New()
		staffID := staffIDs[i%len(staffIDs)]

		for _, variant := range svc.variants {
			_, err := pool.Exec(ctx, `
				INSERT INTO service_variants
					(service_id, salon_id, variant_name, staff_id, duration_min, buffer_before_min, buffer_after_min, active)
				VALUES ($1, $2, $3, $4, $5, 0, $6, true)
			`, serviceID, salonID, variant, staffID, svc.duration, svc.bufAfter)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
