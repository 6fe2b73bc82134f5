package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"calendario/internal/config"
	"calendario/internal/holiday"
	appLog "calendario/internal/log"
	"calendario/internal/model"
	"calendario/internal/store"
	"calendario/internal/store/memstore"
	"calendario/internal/store/migrations"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	events   *store.Facade
	settings store.SettingsRepository
	holidays *holiday.Expander

	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// openApp connects storage (Postgres when configured, memory otherwise),
// optionally migrates, and assembles the holiday lookup chain.
func openApp(ctx context.Context, cfg *config.Config, migrate bool) (*app, error) {
	a := &app{cfg: cfg, loc: resolveLocationOrLocal(cfg.Timezone)}

	if cfg.Database.URL == "" {
		appLog.Warn("no database configured; events are kept in memory", nil)
		mem := memstore.New()
		a.events = store.NewFacade(mem, a.loc)
		a.settings = mem
	} else {
		pool, err := store.OpenPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.sqlDB = stdlib.OpenDBFromPool(pool)

		if migrate {
			if err := migrations.Up(ctx, a.sqlDB); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		settings, err := store.NewGormSettings(a.sqlDB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.events = store.NewFacade(store.NewPostgres(pool), a.loc)
		a.settings = settings
	}

	lookup, err := buildHolidayLookup(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.holidays = holiday.NewExpander(lookup, a.loc)
	return a, nil
}

func buildHolidayLookup(ctx context.Context, cfg *config.Config) (holiday.Lookup, error) {
	rules, err := holiday.NewRules()
	if err != nil {
		return nil, err
	}
	chain := holiday.Multi{rules}

	if len(cfg.Holidays.Calendars) > 0 {
		fetcher := holiday.NewFetcher(cfg.Holidays.CacheDir, nil)
		cals, errs := holiday.LoadCalendars(ctx, cfg.Holidays.Calendars, fetcher)
		if len(errs) > 0 {
			appLog.Warn("some holiday calendars were not loaded", fmt.Errorf("%d failed", len(errs)))
		}
		for _, c := range cals {
			chain = append(chain, c)
		}
	}
	return holiday.NewCached(chain, cfg.Holidays.CacheSize)
}

// initialSettings reads stored settings, defaulting to the config.
func (a *app) initialSettings(ctx context.Context) (model.Settings, error) {
	def := model.Settings{
		Location:   a.cfg.Defaults.Location,
		TimeFormat: model.TimeFormat(a.cfg.Defaults.TimeFormat),
	}.Normalize()
	return store.LoadSettings(ctx, a.settings, def)
}

func (a *app) Close() {
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
