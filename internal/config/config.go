// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for simulation, combat and server settings.
//
// Every value has a compiled-in default (Default*) and may be overridden by a
// BRAWLER_-prefixed environment variable, e.g. BRAWLER_SIM_TICK_RATE=30 or
// BRAWLER_COMBAT_INVULNERABILITY=250ms.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "BRAWLER_"

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig controls the tick loop and character lifecycle.
type SimConfig struct {
	TickRate      int           `env:"TICK_RATE"`      // ticks per second
	MaxCharacters int           `env:"MAX_CHARACTERS"` // spawn cap
	DeathGrace    time.Duration `env:"DEATH_GRACE"`    // Dead -> removed
	CommandQueue  int           `env:"COMMAND_QUEUE"`  // pending command capacity
	HookQueue     int           `env:"HOOK_QUEUE"`     // pending hook events before drops
	RetargetEvery int           `env:"RETARGET_EVERY"` // ticks between AI retargeting passes
	GridCellSize  float64       `env:"GRID_CELL_SIZE"` // broad-phase cell size (m)
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:      30,
		MaxCharacters: 256,
		DeathGrace:    4 * time.Second, // same as the ragdoll window before respawn
		CommandQueue:  1024,
		HookQueue:     4096,
		RetargetEvery: 10,
		GridCellSize:  8,
	}
}

// =============================================================================
// COMBAT & LOCOMOTION TUNING
// =============================================================================

// CombatConfig holds every tuning constant of the combat core.
// Distances are meters, speeds m/s, angles radians unless noted.
type CombatConfig struct {
	// Impact
	InvulnerabilityDuration time.Duration `env:"INVULNERABILITY"`
	MaxKnockbackSpeed       float64       `env:"MAX_KNOCKBACK_SPEED"`
	MaxLaunchSpeed          float64       `env:"MAX_LAUNCH_SPEED"`
	MinLaunchUp             float64       `env:"MIN_LAUNCH_UP"` // launches always get at least this much +Y

	// Ballistic motion
	Gravity             float64 `env:"GRAVITY"`
	LaunchDrag          float64 `env:"LAUNCH_DRAG"` // horizontal drag per second while launched
	MaxLaunchHorizontal float64 `env:"MAX_LAUNCH_HORIZONTAL"`
	KnockbackDecay      float64 `env:"KNOCKBACK_DECAY"`   // exponential decay rate (1/s)
	KnockbackEpsilon    float64 `env:"KNOCKBACK_EPSILON"` // speed below which knockback ends

	// Ground check
	ProbeLift       float64 `env:"PROBE_LIFT"`  // probe starts this far above the feet
	ProbeDepth      float64 `env:"PROBE_DEPTH"` // and reaches this far below them
	GroundTolerance float64 `env:"GROUND_TOLERANCE"`
	MaxFallDistance float64 `env:"MAX_FALL_DISTANCE"`

	// Landing / recovery
	LandingRecoveryTime time.Duration `env:"LANDING_RECOVERY"`
	NavSnapRadius       float64       `env:"NAV_SNAP_RADIUS"`

	// Path following
	MoveSpeed         float64 `env:"MOVE_SPEED"`
	TurnRate          float64 `env:"TURN_RATE"` // rad/s
	MaxFollowDistance float64 `env:"MAX_FOLLOW_DISTANCE"`
	StoppingDistance  float64 `env:"STOPPING_DISTANCE"`
	FacingDistance    float64 `env:"FACING_DISTANCE"`

	// Dash
	DashSpeed           float64       `env:"DASH_SPEED"`
	DashDuration        time.Duration `env:"DASH_DURATION"`
	DashCooldown        time.Duration `env:"DASH_COOLDOWN"`
	DashInvulnerability time.Duration `env:"DASH_INVULNERABILITY"`

	// Hit detection
	EyeHeight float64 `env:"EYE_HEIGHT"` // line-of-sight rays start/end this high

	VerboseLog bool `env:"VERBOSE_LOG"` // log every hit
}

// DefaultCombat returns the default tuning.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		InvulnerabilityDuration: 200 * time.Millisecond,
		MaxKnockbackSpeed:       14,
		MaxLaunchSpeed:          18,
		MinLaunchUp:             4,

		Gravity:             25,
		LaunchDrag:          0.8,
		MaxLaunchHorizontal: 8,
		KnockbackDecay:      6,
		KnockbackEpsilon:    0.15,

		ProbeLift:       0.3,
		ProbeDepth:      0.25,
		GroundTolerance: 0.05,
		MaxFallDistance: 20,

		LandingRecoveryTime: 400 * time.Millisecond,
		NavSnapRadius:       3,

		MoveSpeed:         5,
		TurnRate:          10,
		MaxFollowDistance: 25,
		StoppingDistance:  1.5,
		FacingDistance:    6,

		DashSpeed:           14,
		DashDuration:        180 * time.Millisecond,
		DashCooldown:        800 * time.Millisecond,
		DashInvulnerability: 150 * time.Millisecond,

		EyeHeight: 1.2,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `env:"ADDR"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`
	RequestsPerSec float64       `env:"RATE_LIMIT_RPS"`
	Burst          int           `env:"RATE_LIMIT_BURST"`
	BroadcastEvery time.Duration `env:"BROADCAST_EVERY"` // websocket snapshot period
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Addr:           ":3000",
		RequestsPerSec: 20,
		Burst:          40,
		BroadcastEvery: 100 * time.Millisecond, // 10 updates per second
	}
}

// =============================================================================
// OBSERVABILITY
// =============================================================================

// ObservabilityConfig configures the internal debug server (pprof + metrics).
type ObservabilityConfig struct {
	Enabled       bool   `env:"ENABLED"`
	ListenAddr    string `env:"ADDR"`
	BasicAuthUser string `env:"USER"`
	BasicAuthPass string `env:"PASS"`
}

// DefaultObservability returns safe defaults.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // localhost only
	}
}

// =============================================================================
// FILE PATHS
// =============================================================================

// PathsConfig points at the data files loaded at startup.
type PathsConfig struct {
	Moveset      string `env:"MOVESET"`       // YAML combo chains; empty = built-in
	Arena        string `env:"ARENA"`         // YAML arena layout; empty = built-in
	EventLog     string `env:"EVENT_LOG"`     // JSONL combat log; empty = disabled
	WatchMoveset bool   `env:"WATCH_MOVESET"` // hot reload the moveset on change
}

// DefaultPaths returns the default file locations.
func DefaultPaths() PathsConfig {
	return PathsConfig{
		EventLog: "data/combat.jsonl",
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim           SimConfig           `envPrefix:"SIM_"`
	Combat        CombatConfig        `envPrefix:"COMBAT_"`
	Server        ServerConfig        `envPrefix:"SERVER_"`
	Observability ObservabilityConfig `envPrefix:"DEBUG_"`
	Paths         PathsConfig         `envPrefix:"PATH_"`
}

// Default returns the compiled-in configuration.
func Default() AppConfig {
	return AppConfig{
		Sim:           DefaultSim(),
		Combat:        DefaultCombat(),
		Server:        DefaultServer(),
		Observability: DefaultObservability(),
		Paths:         DefaultPaths(),
	}
}

// Load returns the defaults with environment overrides applied, validated.
func Load() (AppConfig, error) {
	return LoadWithEnv(nil)
}

// LoadWithEnv is Load reading from the given environment map instead of the
// process environment when environment is non-nil.
func LoadWithEnv(environment map[string]string) (AppConfig, error) {
	cfg := Default()
	opts := env.Options{Prefix: EnvPrefix, Environment: environment}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the simulation cannot run with.
func (c AppConfig) Validate() error {
	checks := []struct {
		ok   bool
		what string
	}{
		{c.Sim.TickRate > 0, "sim tick rate must be positive"},
		{c.Sim.MaxCharacters > 0, "sim max characters must be positive"},
		{c.Sim.DeathGrace >= 0, "sim death grace must not be negative"},
		{c.Sim.CommandQueue > 0, "sim command queue must be positive"},
		{c.Sim.HookQueue > 0, "sim hook queue must be positive"},
		{c.Sim.GridCellSize > 0, "sim grid cell size must be positive"},
		{c.Combat.InvulnerabilityDuration >= 0, "invulnerability must not be negative"},
		{c.Combat.MaxKnockbackSpeed > 0, "max knockback speed must be positive"},
		{c.Combat.MaxLaunchSpeed > 0, "max launch speed must be positive"},
		{c.Combat.Gravity > 0, "gravity must be positive"},
		{c.Combat.KnockbackDecay > 0, "knockback decay must be positive"},
		{c.Combat.KnockbackEpsilon > 0, "knockback epsilon must be positive"},
		{c.Combat.LandingRecoveryTime >= 0, "landing recovery must not be negative"},
		{c.Combat.NavSnapRadius > 0, "nav snap radius must be positive"},
		{c.Combat.TurnRate > 0, "turn rate must be positive"},
		{c.Combat.MoveSpeed > 0, "move speed must be positive"},
		{c.Server.RequestsPerSec > 0, "rate limit must be positive"},
		{c.Server.Burst > 0, "rate limit burst must be positive"},
		{c.Server.BroadcastEvery > 0, "broadcast period must be positive"},
	}
	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("config: %w: %s", ErrInvalidConfig, check.what)
		}
	}
	return nil
}

// TickInterval returns the wall-clock duration of one tick.
func (s SimConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}
