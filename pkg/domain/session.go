package domain

import (
	"fmt"
	"time"
)

// Strategy selects how a session is reset.
type Strategy string

const (
	// StrategyIsolated reloads the whole program image in a fresh child process.
	StrategyIsolated Strategy = "isolated"
	// StrategyInPlace discards the program's execution context and re-runs its entry routine.
	StrategyInPlace Strategy = "inplace"
	// StrategyRelay drives an unmodified external binary through a pseudo-terminal.
	StrategyRelay Strategy = "relay"
)

// ParseStrategy validates a strategy name. Empty means StrategyIsolated.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyIsolated:
		return StrategyIsolated, nil
	case StrategyInPlace, StrategyRelay:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// SessionInfo is the persisted summary of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Program   string    `json:"program"`
	Strategy  Strategy  `json:"strategy"`
	Recording string    `json:"recording,omitempty"`
	Steps     int       `json:"steps"`
	Resets    int       `json:"resets"`
	Done      bool      `json:"done"`
	Ended     bool      `json:"ended"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastError string    `json:"last_error,omitempty"`
}
