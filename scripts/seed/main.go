package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/odyssey-erp/periods/internal/app"
	"github.com/odyssey-erp/periods/internal/catalog"
	"github.com/odyssey-erp/periods/internal/period"
	"github.com/odyssey-erp/periods/internal/platform/db"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	year, err := strconv.Atoi(getenv("SEED_YEAR", strconv.Itoa(time.Now().Year())))
	if err != nil {
		logger.Error("parse SEED_YEAR", slog.Any("error", err))
		os.Exit(1)
	}
	zone := getenv("SEED_ZONE", "Asia/Jakarta")

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := catalog.Migrate(ctx, pool); err != nil {
		logger.Error("migrate catalog", slog.Any("error", err))
		os.Exit(1)
	}

	service := catalog.NewService(catalog.NewRepository(pool), nil, nil)
	created, skipped := 0, 0
	for _, input := range calendar(year, zone) {
		_, err := service.Register(ctx, input)
		switch {
		case err == nil:
			created++
		case errors.Is(err, catalog.ErrDuplicateCode):
			skipped++
		case errors.Is(err, period.ErrOffsetMismatch):
			skipped++
			logger.Warn("period spans an offset change, not seeded", slog.String("code", input.Code), slog.Any("error", err))
		default:
			logger.Error("seed period", slog.String("code", input.Code), slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("seed complete", slog.Int("created", created), slog.Int("skipped", skipped), slog.Int("year", year), slog.String("zone", zone))
}

// calendar builds the twelve months, four quarters and the year itself as wall-clock
// ranges in zone.
func calendar(year int, zone string) []catalog.RegisterInput {
	const layout = "2006-01-02T15:04:05"
	at := func(y int, m time.Month) string {
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).Format(layout)
	}
	inputs := make([]catalog.RegisterInput, 0, 17)
	for m := time.January; m <= time.December; m++ {
		inputs = append(inputs, catalog.RegisterInput{
			Code:  fmt.Sprintf("%d-%02d", year, int(m)),
			Label: fmt.Sprintf("%s %d", m, year),
			Start: at(year, m),
			End:   at(year, m+1),
			Zone:  zone,
		})
	}
	for q := 0; q < 4; q++ {
		first := time.Month(q*3 + 1)
		inputs = append(inputs, catalog.RegisterInput{
			Code:  fmt.Sprintf("%d-q%d", year, q+1),
			Label: fmt.Sprintf("Q%d %d", q+1, year),
			Start: at(year, first),
			End:   at(year, first+3),
			Zone:  zone,
		})
	}
	inputs = append(inputs, catalog.RegisterInput{
		Code:  fmt.Sprintf("fy%d", year),
		Label: fmt.Sprintf("Fiscal year %d", year),
		Start: at(year, time.January),
		End:   at(year+1, time.January),
		Zone:  zone,
	})
	return inputs
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
