package budget

import (
	"fmt"
	"strings"

	"reflex/game"
)

// Kind selects which resource a Budget limits.
type Kind int

const (
	Time Kind = iota
	Iterations
	FMCalls
	Copies
	FMAndCopies
)

var kindNames = []string{"time", "iterations", "fm_calls", "copies", "fm_and_copies"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the names printed by Kind.String, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown budget kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Budget bounds a search loop.
type Budget struct {
	Kind Kind `yaml:"kind" json:"kind"`
	// Limit is in milliseconds for Time and a count otherwise
	Limit int `yaml:"limit" json:"limit"`
	// BreakMS is kept in reserve at the end of a Time budget
	BreakMS int `yaml:"break_ms" json:"break_ms"`
}

func (b Budget) Validate() error {
	if b.Kind < Time || b.Kind > FMAndCopies {
		return fmt.Errorf("unknown budget kind %d", int(b.Kind))
	}
	if b.Limit <= 0 {
		return fmt.Errorf("budget limit must be positive, got %d", b.Limit)
	}
	if b.BreakMS < 0 {
		return fmt.Errorf("budget break must not be negative, got %dms", b.BreakMS)
	}
	if b.Kind == Time && b.BreakMS >= b.Limit {
		return fmt.Errorf("budget break %dms leaves no time out of %dms", b.BreakMS, b.Limit)
	}
	return nil
}

func (b Budget) String() string {
	if b.Kind == Time {
		return fmt.Sprintf("%s=%dms(break %dms)", b.Kind, b.Limit, b.BreakMS)
	}
	return fmt.Sprintf("%s=%d", b.Kind, b.Limit)
}

type StopReason int

const (
	StopNone       StopReason = 0
	StopTime       StopReason = 1
	StopIterations StopReason = 2
	StopFMCalls    StopReason = 4
	StopCopies     StopReason = 8
	StopParent     StopReason = 16 // the enclosing search ran out
	StopStalled    StopReason = 32 // the search itself found nothing left to do
)

func (sr StopReason) String() string {
	if sr == StopNone {
		return "None"
	}

	reasons := []struct {
		flag StopReason
		name string
	}{
		{StopTime, "Time"},
		{StopIterations, "Iterations"},
		{StopFMCalls, "FMCalls"},
		{StopCopies, "Copies"},
		{StopParent, "Parent"},
		{StopStalled, "Stalled"},
	}

	var result string
	for _, r := range reasons {
		if sr&r.flag == r.flag {
			if result != "" {
				result += "|"
			}
			result += r.name
		}
	}
	return result
}

func kindMismatch(kind Kind) {
	game.Raise("unreachable budget kind", "kind", int(kind))
}

