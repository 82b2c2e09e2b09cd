package status

import (
	"fmt"
	"strings"
)

// Kind names the attribute a status effect modifies.
type Kind uint8

const (
	KindAttack Kind = iota
	KindAttackSpeed
	KindSpellPower
	KindSlow
	KindVulnerable
	KindPoison
	KindDefense
	KindMoveSpeed
	KindHealth
	KindMana

	kindCount
)

var kindNames = [kindCount]string{
	KindAttack:      "attack",
	KindAttackSpeed: "attack_speed",
	KindSpellPower:  "spell_power",
	KindSlow:        "slow",
	KindVulnerable:  "vulnerable",
	KindPoison:      "poison",
	KindDefense:     "defense",
	KindMoveSpeed:   "move_speed",
	KindHealth:      "health",
	KindMana:        "mana",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Valid() bool { return k < kindCount }

// Kinds returns every defined kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind maps a catalog name ("attack_speed", "Poison") to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown effect kind %q", s)
}

// movementKind reports kinds whose multiplier is floored at MovementFloor.
func movementKind(k Kind) bool {
	return k == KindSlow || k == KindMoveSpeed
}

// Polarity separates buffs from debuffs.
type Polarity int8

const (
	Positive Polarity = 1
	Negative Polarity = -1
)

func (p Polarity) String() string {
	if p == Negative {
		return "negative"
	}
	return "positive"
}

// ParsePolarity accepts "positive"/"buff" and "negative"/"debuff".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "positive", "buff":
		return Positive, nil
	case "negative", "debuff":
		return Negative, nil
	}
	return 0, fmt.Errorf("unknown polarity %q", s)
}
