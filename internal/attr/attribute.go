package attr

import (
	"fmt"
	"strings"
)

// Attribute names one of the five primary attributes.
type Attribute uint8

const (
	Strength Attribute = iota
	Agility
	Intelligence
	Stamina
	Vitality

	attributeCount
)

var attributeNames = [attributeCount]string{"strength", "agility", "intelligence", "stamina", "vitality"}

func (a Attribute) String() string {
	if a < attributeCount {
		return attributeNames[a]
	}
	return fmt.Sprintf("attribute(%d)", uint8(a))
}

func (a Attribute) Valid() bool { return a < attributeCount }

// ParseAttribute maps "STR"/"strength" style names to an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "str":
		return Strength, nil
	case "agi", "dex":
		return Agility, nil
	case "int":
		return Intelligence, nil
	case "sta", "con":
		return Stamina, nil
	case "vit":
		return Vitality, nil
	}
	for i, name := range attributeNames {
		if name == s {
			return Attribute(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", s)
}

// Set holds one value per attribute.
type Set [attributeCount]int

func (s Set) Get(a Attribute) int {
	if !a.Valid() {
		return 0
	}
	return s[a]
}

// GrowthSet holds per-level growth per attribute. A zero entry means the
// attribute never grows on its own.
type GrowthSet [attributeCount]int

// DefaultGrowth grows everything but vitality by one point per level and
// strength by two.
var DefaultGrowth = GrowthSet{Strength: 2, Agility: 1, Intelligence: 1, Stamina: 1, Vitality: 0}
