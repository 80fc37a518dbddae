package arena

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"brawler/internal/game"
)

// ErrInvalidLayout wraps every layout validation failure.
var ErrInvalidLayout = errors.New("invalid arena layout")

// Rect is an axis-aligned ground-plane rectangle. Height is the wall height
// for walls and the floor height for platforms; pits ignore it.
type Rect struct {
	MinX   float64 `yaml:"min_x"`
	MinZ   float64 `yaml:"min_z"`
	MaxX   float64 `yaml:"max_x"`
	MaxZ   float64 `yaml:"max_z"`
	Height float64 `yaml:"height"`
}

func (r Rect) contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Spawn is a character placed when the arena boots.
type Spawn struct {
	Name       string  `yaml:"name"`
	Team       string  `yaml:"team"`
	Controller string  `yaml:"controller"` // "ai" or "player"
	Chain      string  `yaml:"chain"`
	X          float64 `yaml:"x"`
	Z          float64 `yaml:"z"`
	Yaw        float64 `yaml:"yaw"`
	MaxHealth  int     `yaml:"max_health"`
}

// Options converts the spawn into engine spawn options.
func (s Spawn) Options() game.SpawnOptions {
	return game.SpawnOptions{
		Name:       s.Name,
		Team:       s.Team,
		Controller: game.ParseController(s.Controller),
		Chain:      s.Chain,
		MaxHealth:  s.MaxHealth,
		Position:   game.Vec3{X: s.X, Z: s.Z},
		Yaw:        s.Yaw,
	}
}

// Layout describes an arena centred on the origin.
type Layout struct {
	Name      string  `yaml:"name"`
	Width     float64 `yaml:"width"` // along X
	Depth     float64 `yaml:"depth"` // along Z
	CellSize  float64 `yaml:"cell_size"`
	Walls     []Rect  `yaml:"walls"`
	Pits      []Rect  `yaml:"pits"`
	Platforms []Rect  `yaml:"platforms"`
	Spawns    []Spawn `yaml:"spawns"`
}

// Bounds returns the ground rectangle the layout covers.
func (l Layout) Bounds() game.Bounds {
	return game.Bounds{MinX: -l.Width / 2, MinZ: -l.Depth / 2, MaxX: l.Width / 2, MaxZ: l.Depth / 2}
}

// Validate fills defaults and rejects layouts the arena cannot be built from.
func (l *Layout) Validate() error {
	if l.Width <= 0 || l.Depth <= 0 {
		return fmt.Errorf("%w: size %.1fx%.1f", ErrInvalidLayout, l.Width, l.Depth)
	}
	if l.CellSize == 0 {
		l.CellSize = 1
	}
	if l.CellSize < 0 {
		return fmt.Errorf("%w: cell size %.2f", ErrInvalidLayout, l.CellSize)
	}
	groups := []struct {
		what  string
		rects []Rect
	}{
		{"wall", l.Walls},
		{"pit", l.Pits},
		{"platform", l.Platforms},
	}
	for _, g := range groups {
		for i, r := range g.rects {
			if r.MinX >= r.MaxX || r.MinZ >= r.MaxZ {
				return fmt.Errorf("%w: %s %d is empty", ErrInvalidLayout, g.what, i)
			}
		}
	}
	for i, w := range l.Walls {
		if w.Height <= 0 {
			return fmt.Errorf("%w: wall %d has no height", ErrInvalidLayout, i)
		}
	}
	return nil
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("arena: decode: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("arena: %w", err)
	}
	return l, nil
}

// LoadLayout reads a layout file.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("arena: %w", err)
	}
	return ParseLayout(data)
}

// DefaultLayout is a 60m square pit fight: a wall through the middle, a
// raised platform and a hole in one corner, two teams of AI brawlers.
func DefaultLayout() Layout {
	return Layout{
		Name:     "pit",
		Width:    60,
		Depth:    60,
		CellSize: 1,
		Walls: []Rect{
			{MinX: -6, MinZ: -0.5, MaxX: 6, MaxZ: 0.5, Height: 3},
		},
		Pits: []Rect{
			{MinX: 18, MinZ: 18, MaxX: 26, MaxZ: 26},
		},
		Platforms: []Rect{
			{MinX: -26, MinZ: 16, MaxX: -16, MaxZ: 26, Height: 1},
		},
		Spawns: []Spawn{
			{Name: "red-1", Team: "red", Controller: "ai", Chain: "brawler", X: -10, Z: -10},
			{Name: "red-2", Team: "red", Controller: "ai", Chain: "slam", X: -12, Z: -6},
			{Name: "blue-1", Team: "blue", Controller: "ai", Chain: "brawler", X: 10, Z: 10, Yaw: 3.14159},
			{Name: "blue-2", Team: "blue", Controller: "ai", Chain: "brawler", X: 12, Z: 6, Yaw: 3.14159},
		},
	}
}
