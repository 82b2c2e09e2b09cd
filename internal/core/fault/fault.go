// Package fault holds the error taxonomy shared by the combat core.
// None of these are meant to escape a tick: callers log them and degrade.
package fault

import (
	"errors"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

var (
	// ErrInvalidIndex marks an out-of-range skill slot or similar lookup.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrCapacityExceeded marks a full status effect registry.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrMissingDependency marks an absent optional collaborator.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrInvalidTarget marks a self-hit, already-hit or non-damageable candidate.
	ErrInvalidTarget = errors.New("invalid target")
)

// Missing wraps ErrMissingDependency with the collaborator name.
func Missing(what string) error {
	return fmt.Errorf("%s: %w", what, ErrMissingDependency)
}

// Recover absorbs a panic raised inside a tick step and logs it.
// Use as: defer fault.Recover(log, "movement").
func Recover(log *zap.Logger, where string) {
	r := recover()
	if r == nil {
		return
	}
	if log == nil {
		return
	}
	log.Error("recovered fault in tick",
		zap.String("where", where),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
	)
}
