package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a configured transition may fire.
type GuardFunc func(ctx context.Context) bool

// transition is one entry of the transition table.
type transition struct {
	toStage Stage
	guard   GuardFunc
}

// StageConfig configures the outgoing transitions of a single stage.
type StageConfig struct {
	fromStage   Stage
	transitions map[Trigger][]transition
}

// Builder assembles the transition table for a state machine.
type Builder struct {
	configs map[Stage]*StageConfig
}

// NewBuilder creates an empty transition-table builder.
func NewBuilder() *Builder {
	return &Builder{configs: make(map[Stage]*StageConfig)}
}

// Configure returns the configuration for the given stage, creating it
// on first use. Unknown stages are a programming error and panic.
func (b *Builder) Configure(stage Stage) *StageConfig {
	if !stage.IsValid() {
		panic(fmt.Sprintf("workflow: configuring unknown stage %q", stage))
	}
	cfg, ok := b.configs[stage]
	if !ok {
		cfg = &StageConfig{
			fromStage:   stage,
			transitions: make(map[Trigger][]transition),
		}
		b.configs[stage] = cfg
	}
	return cfg
}

// Permit allows the trigger to move to the target stage unconditionally.
func (c *StageConfig) Permit(trigger Trigger, to Stage) *StageConfig {
	return c.PermitIf(trigger, to, nil)
}

// PermitIf allows the trigger to move to the target stage when the
// guard passes.
func (c *StageConfig) PermitIf(trigger Trigger, to Stage, guard GuardFunc) *StageConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("workflow: transition to unknown stage %q", to))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{toStage: to, guard: guard})
	return c
}

// Build creates a machine positioned at the given stage. The machine
// holds its own copy of the table so the builder can be reused.
func (b *Builder) Build(current Stage) *Machine {
	if !current.IsValid() {
		panic(fmt.Sprintf("workflow: building machine at unknown stage %q", current))
	}
	table := make(map[Stage]map[Trigger][]transition, len(b.configs))
	for stage, cfg := range b.configs {
		rows := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			rows[trigger] = append([]transition(nil), ts...)
		}
		table[stage] = rows
	}
	return &Machine{current: current, table: table}
}

// Machine tracks the current stage and validates transitions against
// its transition table.
type Machine struct {
	current Stage
	table   map[Stage]map[Trigger][]transition
}

// Stage returns the current stage.
func (m *Machine) Stage() Stage {
	return m.current
}

// CanFire reports whether the trigger has at least one configured
// transition from the current stage. Guards are not evaluated here.
func (m *Machine) CanFire(trigger Trigger) bool {
	rows, ok := m.table[m.current]
	if !ok {
		return false
	}
	return len(rows[trigger]) > 0
}

// Fire executes the trigger, moving to the first permitted target
// stage. It returns ErrInvalidTransition when the trigger is not in the
// table and ErrGuardFailed when every candidate is blocked.
func (m *Machine) Fire(ctx context.Context, trigger Trigger) error {
	rows, ok := m.table[m.current]
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	ts, ok := rows[trigger]
	if !ok || len(ts) == 0 {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toStage
			return nil
		}
	}
	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

// PermittedTriggers returns the triggers with configured transitions
// from the current stage.
func (m *Machine) PermittedTriggers() []Trigger {
	rows, ok := m.table[m.current]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(rows))
	for trigger := range rows {
		triggers = append(triggers, trigger)
	}
	return triggers
}
