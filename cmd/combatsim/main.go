// Package main runs one combat encounter end to end with automatic policies
// for every side and prints a JSON summary of the outcome and rewards.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cory-johannsen/starfall/internal/config"
	"github.com/cory-johannsen/starfall/internal/game/combat"
	"github.com/cory-johannsen/starfall/internal/game/content"
	"github.com/cory-johannsen/starfall/internal/game/dice"
	"github.com/cory-johannsen/starfall/internal/game/party"
	"github.com/cory-johannsen/starfall/internal/game/reward"
	"github.com/cory-johannsen/starfall/internal/observability"
	"github.com/cory-johannsen/starfall/internal/scripting"
	"github.com/cory-johannsen/starfall/internal/storage/postgres"
	"github.com/cory-johannsen/starfall/internal/storage/redis"
	"github.com/cory-johannsen/starfall/internal/telemetry"
)

type options struct {
	configPath string
	area       string
	seed       int64
	partyFile  string
	session    string
	maxTurns   int
	heal       float64
}

// summary is the JSON document written on completion.
type summary struct {
	CombatID        string          `json:"combat_id"`
	Area            string          `json:"area"`
	Outcome         string          `json:"outcome"`
	Rounds          int             `json:"rounds"`
	Turns           int             `json:"turns"`
	EnemiesDefeated int             `json:"enemies_defeated"`
	Events          []string        `json:"events"`
	Results         *reward.Results `json:"results,omitempty"`
	Elapsed         string          `json:"elapsed"`
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "configs/dev.yaml", "path to configuration file")
	flag.StringVar(&opts.area, "area", "frozen_pass", "location area whose encounter is fought")
	flag.Int64Var(&opts.seed, "seed", 0, "loot dice seed; 0 uses crypto randomness")
	flag.StringVar(&opts.partyFile, "party", "", "YAML party file; overrides the configured party source")
	flag.StringVar(&opts.session, "session", "combatsim", "session id the combat is stored under")
	flag.IntVar(&opts.maxTurns, "max-turns", 1000, "flee after this many turns")
	flag.Float64Var(&opts.heal, "heal-below", 0.35, "party heals allies below this fraction of max hp")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("combatsim: %v", err)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	start := time.Now()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.partyFile != "" {
		cfg.Party.Source = "file"
		cfg.Party.File = opts.partyFile
	}

	logger, err := observability.NewLogger(cfg.Logging, "combatsim")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := content.Load(cfg.Content.Dir)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}
	logger.Info("content loaded",
		zap.String("dir", cfg.Content.Dir),
		zap.Int("enemies", len(catalog.Enemies)),
		zap.Int("encounters", len(catalog.Encounters)),
		zap.Int("items", len(catalog.Items)),
		zap.Int("spells", len(catalog.Spells)),
	)

	curve, closeCurve, err := loadCurve(cfg, catalog, logger)
	if err != nil {
		return err
	}
	defer closeCurve()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	snapshots, closeSnapshots, err := openSnapshots(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	sinks, err := observability.NewSinks(ctx, cfg.Telemetry, logger, prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("building telemetry sinks: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sinks.Close(shutdownCtx); err != nil {
			logger.Warn("closing telemetry sinks", zap.Error(err))
		}
	}()
	events := &telemetry.Recorder{}

	src := dice.NewCryptoSource()
	if opts.seed != 0 {
		src = dice.NewSeededSource(opts.seed)
	}
	roller := dice.NewLoggedRoller(src, logger)

	engine := combat.NewEngine(combat.Deps{
		Catalog:    catalog,
		Store:      store,
		Calculator: reward.NewCalculator(catalog.Enemies, curve, roller, logger),
		Rules:      combat.Rules{GuardDivisor: cfg.Combat.GuardDivisor, MinDamage: cfg.Combat.MinDamage},
		Policy:     combat.LowestHPPolicy{},
		Sink:       telemetry.Multi{sinks, events},
		Logger:     logger,
	}, snapshots)

	players := combat.SupportPolicy{Catalog: catalog, Threshold: opts.heal}
	sum, err := simulate(ctx, engine, players, opts)
	if err != nil {
		return err
	}
	sum.Events = events.Names()
	sum.Elapsed = time.Since(start).String()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}

// simulate fights the encounter for opts.area to a terminal outcome and
// records the results of a victory.
func simulate(ctx context.Context, engine *combat.Engine, players combat.Policy, opts options) (summary, error) {
	st, err := engine.StartCombat(ctx, opts.session, opts.area)
	if err != nil {
		return summary{}, fmt.Errorf("starting combat: %w", err)
	}
	defer engine.EndCombat(context.WithoutCancel(ctx), opts.session)
	sess, err := engine.Session(ctx, opts.session)
	if err != nil {
		return summary{}, err
	}

	for !st.Outcome.Terminal() {
		if ctx.Err() != nil || st.Turns >= opts.maxTurns {
			st, err = sess.Flee(context.WithoutCancel(ctx))
		} else if sess.RequiresInput() {
			st, err = sess.Act(ctx, players.Decide(st))
		} else {
			st, err = sess.TakeAutoTurn(ctx)
		}
		if err != nil {
			return summary{}, fmt.Errorf("round %d: %w", st.Round, err)
		}
	}

	sum := summary{
		CombatID:        st.ID,
		Area:            st.Area,
		Outcome:         st.Outcome.String(),
		Rounds:          st.Round,
		Turns:           st.Turns,
		EnemiesDefeated: st.EnemiesDefeated(),
	}
	if st.Outcome.Victory() {
		res, err := sess.ComputeResults(ctx)
		if err != nil {
			return summary{}, fmt.Errorf("recording results: %w", err)
		}
		sum.Results = &res
		out, _ := sess.Outcome()
		sum.Outcome = out.String()
	}
	return sum, nil
}

func loadCurve(cfg config.Config, catalog *content.Catalog, logger *zap.Logger) (reward.Curve, func(), error) {
	if cfg.Combat.LevelCurve == "lua" {
		path := filepath.Join(cfg.Content.Dir, "curve.lua")
		c, err := scripting.LoadLuaCurve(path, 0, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("loading lua level curve: %w", err)
		}
		logger.Info("level curve loaded", zap.String("source", path))
		return c, c.Close, nil
	}
	if catalog.Curve == nil {
		return nil, nil, fmt.Errorf("content dir %q has no curve.yaml", cfg.Content.Dir)
	}
	logger.Info("level curve loaded", zap.Int("max_level", catalog.Curve.MaxLevel()))
	return catalog.Curve, func() {}, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (party.Store, func(), error) {
	if cfg.Party.Source == "postgres" {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pool.Health(ctx, 2*time.Second); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database health check: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.String("party", cfg.Party.ID),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		return postgres.NewPartyRepository(pool.DB(), cfg.Party.ID), pool.Close, nil
	}
	p, err := party.LoadFile(cfg.Party.File)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("party loaded", zap.String("file", cfg.Party.File), zap.Int("characters", len(p.Characters)))
	return party.NewMemoryStore(p), func() {}, nil
}

func openSnapshots(ctx context.Context, cfg config.Config, logger *zap.Logger) (combat.SnapshotStore, func(), error) {
	if !cfg.Redis.Enabled {
		return combat.NewMemorySnapshots(), func() {}, nil
	}
	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Duration("snapshot_ttl", cfg.Combat.SnapshotTTL))
	return redis.NewSnapshotStore(rdb, cfg.Combat.SnapshotTTL), func() { _ = rdb.Close() }, nil
}
