package system

import (
	"time"

	coresys "github.com/l1jgo/combatcore/internal/core/system"
	"github.com/l1jgo/combatcore/internal/damage"
)

// DamageSystem steps every active damage resolver against the positions
// after movement. Phase 3 (Damage).
type DamageSystem struct {
	pipeline *damage.Pipeline
}

func NewDamageSystem(p *damage.Pipeline) *DamageSystem {
	return &DamageSystem{pipeline: p}
}

func (s *DamageSystem) Phase() coresys.Phase { return coresys.PhaseDamage }
func (s *DamageSystem) Name() string         { return "damage" }

func (s *DamageSystem) Update(dt time.Duration) {
	s.pipeline.Step(dt.Seconds())
}
