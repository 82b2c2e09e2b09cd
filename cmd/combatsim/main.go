package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/combatcore/internal/attr"
	"github.com/l1jgo/combatcore/internal/combat"
	"github.com/l1jgo/combatcore/internal/config"
	"github.com/l1jgo/combatcore/internal/core/event"
	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/data"
	"github.com/l1jgo/combatcore/internal/feed"
	"github.com/l1jgo/combatcore/internal/npc"
	"github.com/l1jgo/combatcore/internal/persist"
	"github.com/l1jgo/combatcore/internal/scripting"
	"github.com/l1jgo/combatcore/internal/system"
	"github.com/l1jgo/combatcore/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultConfigPath = "config/combatsim.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner(seed int64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              combatcore  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       real-time combat simulation core    \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mseed:\033[0m %d\n\n", seed)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := printer.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Simulation ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := os.Getenv(config.PathEnv)
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Simulation.Seed)

	// 3. Load catalogs
	printSection("data")
	catalog, err := data.LoadCatalog(cfg.Data.Effects, cfg.Data.Skills, cfg.Data.NPCs, cfg.Data.Spawns)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	printStat("effects", catalog.Effects.Count())
	printStat("skills", catalog.Skills.Count())
	printStat("npc templates", catalog.Npcs.Count())
	printStat("spawns", catalog.Spawns.Count())
	fmt.Println()

	// 4. Scripts
	printSection("scripting")
	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()
	threshold := scripts.ThresholdFunc()
	if threshold != nil {
		printOK("level curve from next_level_exp")
	} else {
		printOK("built-in level curve")
	}
	fmt.Println()

	// 5. World
	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	bus := event.NewBus()
	runner := coresys.NewRunner(log)
	ws := world.NewState(runner.Clock(),
		world.WithBus(bus),
		world.WithLogger(log),
		world.WithRand(rng),
		world.WithCellSize(cfg.Simulation.CellSize),
		world.WithChainFalloff(cfg.Combat.ChainFalloff),
		world.WithCombatTimeout(cfg.Combat.CombatTimeout),
		world.WithEffectCapacity(cfg.Combat.MaxEffects),
		world.WithFriction(cfg.Combat.Friction))

	defaults, err := specDefaults(cfg, threshold)
	if err != nil {
		return err
	}
	players, npcs, err := spawnAll(ws, catalog, defaults, rng)
	if err != nil {
		return err
	}

	// 6. Optional database
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var writer *persist.Writer
	if cfg.Database.Enabled {
		printSection("database")
		db, err := openDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := persist.NewProgressionRepo(db)
		restored := restorePlayers(ctx, ws, repo, log)
		printStat("players restored", restored)
		writer = persist.NewWriter(repo, cfg.Simulation.CommandQueueSize, log.Named("persist"))
		fmt.Println()
	}

	// 7. Systems
	queue := system.NewCommandQueue(cfg.Simulation.CommandQueueSize)
	gate := scripting.NewDialogueGate(scripts, log)
	tickRate := cfg.Simulation.TickRate

	runner.Register(system.NewEventDispatchSystem(bus))
	if cfg.Simulation.Autopilot {
		runner.Register(system.NewAutopilotSystem(ws, queue, cfg.Simulation.CorpseDelay))
	}
	runner.Register(system.NewInputSystem(ws, queue, gate, cfg.Simulation.MaxCommandsTick, log))
	runner.Register(system.NewNpcAISystem(ws))
	runner.Register(system.NewMovementSystem(ws))
	runner.Register(system.NewDamageSystem(ws.Pipeline()))
	runner.Register(system.NewBuffTickSystem(ws))
	runner.Register(system.NewStateSystem(ws))
	runner.Register(system.NewCleanupSystem(ws, cfg.Simulation.CorpseDelay, log))
	var persistSys *system.PersistenceSystem
	if writer != nil {
		persistSys = system.NewPersistenceSystem(ws, writer, log, int(cfg.Simulation.SaveInterval/tickRate))
		runner.Register(persistSys)
	}

	tally := newTally(bus)

	// 8. Run
	var hub *feed.Hub
	var services, sinks []func(context.Context) error
	if cfg.Feed.Enabled {
		hub = feed.NewHub(
			feed.WithQueueSize(cfg.Feed.QueueSize),
			feed.WithWriteWait(cfg.Feed.WriteWait),
			feed.WithLogger(log.Named("feed")))
		hub.Attach(bus, runner.Clock().Ticks)
		services = append(services, func(ctx context.Context) error {
			return hub.Run(ctx, cfg.Feed.BindAddress)
		})
	}
	var flush func()
	if writer != nil {
		sinks = append(sinks, writer.Run)
		flush = func() { persistSys.SaveAllPlayers() }
	}

	printSection("ready")
	printStat("players", players)
	printStat("npcs", npcs)
	printReady(fmt.Sprintf("game loop (tick: %s)", tickRate))
	if hub != nil {
		printReady(fmt.Sprintf("event feed ws://%s/events", cfg.Feed.BindAddress))
	}
	fmt.Println()

	loop := func(ctx context.Context) error {
		return gameLoop(ctx, runner, tickRate, cfg.Simulation.Duration, log)
	}
	if err := supervise(ctx, loop, flush, services, sinks); err != nil {
		return err
	}

	printSection("summary")
	printStat("ticks", int(runner.Clock().Ticks()))
	printStat("hits", tally.hits)
	printStat("damage dealt", tally.damage)
	printStat("deaths", tally.deaths)
	printStat("level ups", tally.levelUps)
	printStat("actors remaining", ws.Count())
	log.Info("simulation stopped")
	return nil
}

// supervise runs loop next to the background services and sinks. Services
// stop as soon as loop returns. Sinks stop only after flush has run, so
// whatever flush hands them is still consumed.
func supervise(ctx context.Context, loop func(context.Context) error, flush func(),
	services, sinks []func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancelLoop := context.WithCancel(gctx)
	defer cancelLoop()
	sinkCtx, cancelSinks := context.WithCancel(context.Background())
	defer cancelSinks()

	for _, svc := range services {
		svc := svc
		g.Go(func() error { return svc(loopCtx) })
	}
	for _, sink := range sinks {
		sink := sink
		g.Go(func() error { return sink(sinkCtx) })
	}
	g.Go(func() error {
		defer cancelSinks()
		defer cancelLoop()
		err := loop(loopCtx)
		if flush != nil {
			flush()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// gameLoop ticks the runner at a fixed rate until ctx is done or the
// simulated duration elapses.
func gameLoop(ctx context.Context, runner *coresys.Runner, tickRate, duration time.Duration, log *zap.Logger) error {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()
	limit := duration.Seconds()

	for {
		select {
		case <-ticker.C:
			runner.Tick(tickRate)
			if limit > 0 && runner.Clock().Now() >= limit {
				log.Info("simulation duration reached", zap.Duration("duration", duration))
				return nil
			}
		case <-ctx.Done():
			log.Info("shutdown requested")
			return nil
		}
	}
}

func specDefaults(cfg *config.Config, threshold attr.ThresholdFunc) (data.Defaults, error) {
	var growth attr.GrowthSet
	for name, v := range cfg.Progression.Growth {
		a, err := attr.ParseAttribute(name)
		if err != nil {
			return data.Defaults{}, fmt.Errorf("progression.growth: %w", err)
		}
		growth[a] = v
	}
	return data.Defaults{
		Brain: npc.Config{
			DetectionRange: cfg.NPC.DetectionRange,
			AttackRange:    cfg.NPC.AttackRange,
			IdleTimeout:    cfg.NPC.IdleTimeout,
			WaitDelay:      cfg.NPC.WaitDelay,
		},
		MoveSpeed: cfg.NPC.MoveSpeed,
		Attack: combat.AttackProfile{
			BaseCooldown:    cfg.Combat.BaseCooldown,
			BaseAttackSpeed: cfg.Combat.BaseAttackSpeed,
			Range:           cfg.Combat.AttackRange,
			Variance:        cfg.Combat.AttackVariance,
			Knockback:       cfg.Combat.AttackKnockback,
			Duration:        cfg.Combat.AttackDuration,
		},
		Growth:     growth,
		GrowthRate: cfg.Progression.GrowthRate,
		ExpToNext:  cfg.Progression.InitialExpNext,
		Threshold:  threshold,
	}, nil
}

func spawnAll(ws *world.State, catalog *data.Catalog, def data.Defaults, rng *rand.Rand) (int, int, error) {
	players, err := catalog.PlayerSpecs(def)
	if err != nil {
		return 0, 0, fmt.Errorf("players: %w", err)
	}
	npcs, err := catalog.NpcSpecs(def, rng)
	if err != nil {
		return 0, 0, fmt.Errorf("npcs: %w", err)
	}
	for _, spec := range append(players, npcs...) {
		if _, err := ws.Spawn(spec); err != nil {
			return 0, 0, err
		}
	}
	return len(players), len(npcs), nil
}

func openDatabase(ctx context.Context, cfg *config.Config, log *zap.Logger) (*persist.DB, error) {
	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(connCtx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(connCtx, db.Pool, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("migrations applied (version %d)", version))
	return db, nil
}

func restorePlayers(ctx context.Context, ws *world.State, repo *persist.ProgressionRepo, log *zap.Logger) int {
	restored := 0
	ws.Each(func(a *world.Actor) {
		if a.Kind != world.KindPlayer {
			return
		}
		loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		snap, err := repo.Load(loadCtx, a.Name)
		if err != nil {
			log.Error("load progression", zap.String("name", a.Name), zap.Error(err))
			return
		}
		if snap == nil {
			return
		}
		if err := persist.Apply(a, *snap); err != nil {
			log.Error("restore progression", zap.String("name", a.Name), zap.Error(err))
			return
		}
		restored++
	})
	return restored
}

// tally counts combat events for the closing summary.
type tally struct {
	hits, damage, deaths, levelUps int
}

func newTally(bus *event.Bus) *tally {
	t := &tally{}
	event.Subscribe(bus, func(ev event.DamageApplied) {
		t.hits++
		t.damage += ev.Applied
	})
	event.Subscribe(bus, func(event.Died) { t.deaths++ })
	event.Subscribe(bus, func(event.LevelUp) { t.levelUps++ })
	return t
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
