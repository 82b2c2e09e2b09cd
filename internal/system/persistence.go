package system

import (
	"time"

	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/persist"
	"github.com/l1jgo/combatcore/internal/world"
	"go.uber.org/zap"
)

// Enqueuer accepts snapshots without blocking.
type Enqueuer interface {
	Enqueue(s persist.Snapshot) bool
}

// PersistenceSystem periodically snapshots every player's progression and
// hands it to the background writer. Phase 5 (Cleanup).
type PersistenceSystem struct {
	world     *world.State
	writer    Enqueuer
	log       *zap.Logger
	tickCount int
	interval  int // auto-save every N ticks
}

func NewPersistenceSystem(ws *world.State, writer Enqueuer, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PersistenceSystem{
		world:    ws,
		writer:   writer,
		log:      log,
		interval: max(intervalTicks, 1),
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }
func (s *PersistenceSystem) Name() string         { return "persistence" }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.SaveAllPlayers()
}

// SaveAllPlayers snapshots every player now. Called on graceful shutdown.
func (s *PersistenceSystem) SaveAllPlayers() int {
	queued := 0
	s.world.Each(func(a *world.Actor) {
		if a.Kind != world.KindPlayer {
			return
		}
		if s.writer.Enqueue(persist.Capture(a)) {
			queued++
		}
	})
	s.log.Debug("players snapshotted", zap.Int("queued", queued))
	return queued
}
