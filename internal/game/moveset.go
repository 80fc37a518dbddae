package game

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Moveset is the set of combo chains characters can be spawned with.
type Moveset struct {
	chains map[string]ComboChain
}

type movesetFile struct {
	Chains []ComboChain `yaml:"chains"`
}

// ParseMoveset decodes and validates a YAML moveset. Invalid chains reject the
// whole file; malformed attack values are clamped.
func ParseMoveset(data []byte) (*Moveset, error) {
	var file movesetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("moveset: decode: %w", err)
	}
	if len(file.Chains) == 0 {
		return nil, fmt.Errorf("moveset: %w", ErrEmptyChain)
	}

	m := &Moveset{chains: make(map[string]ComboChain, len(file.Chains))}
	for _, chain := range file.Chains {
		valid, err := chain.Validate()
		if err != nil {
			return nil, fmt.Errorf("moveset: %w", err)
		}
		if _, dup := m.chains[valid.Name]; dup {
			return nil, fmt.Errorf("moveset: duplicate chain %q", valid.Name)
		}
		m.chains[valid.Name] = valid
	}
	return m, nil
}

// LoadMoveset reads a YAML moveset from disk.
func LoadMoveset(path string) (*Moveset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("moveset: load %s: %w", path, err)
	}
	m, err := ParseMoveset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Chain returns the named chain.
func (m *Moveset) Chain(name string) (ComboChain, error) {
	c, ok := m.chains[name]
	if !ok {
		return ComboChain{}, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return c, nil
}

// Names returns chain names in sorted order.
func (m *Moveset) Names() []string {
	names := make([]string, 0, len(m.chains))
	for name := range m.chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMoveset returns the built-in chains used when no moveset file is configured.
func DefaultMoveset() *Moveset {
	chains := []ComboChain{
		{
			Name:   "brawler",
			Window: 1500 * time.Millisecond,
			Attacks: []AttackDefinition{
				{Name: "jab", Damage: 8, KnockbackForce: 3, Range: 2.0, ConeAngleDegrees: 90,
					AnimationDuration: 400 * time.Millisecond, DamageDelay: 150 * time.Millisecond},
				{Name: "cross", Damage: 10, KnockbackForce: 4, Range: 2.2, ConeAngleDegrees: 70,
					AnimationDuration: 450 * time.Millisecond, DamageDelay: 180 * time.Millisecond},
				{Name: "hook", Damage: 12, KnockbackForce: 6, Range: 2.0, ConeAngleDegrees: 120,
					AnimationDuration: 500 * time.Millisecond, DamageDelay: 200 * time.Millisecond},
				{Name: "uppercut", Damage: 18, Launch: Vec3{X: 2, Y: 9}, Range: 2.0, ConeAngleDegrees: 60,
					AnimationDuration: 700 * time.Millisecond, DamageDelay: 300 * time.Millisecond},
			},
		},
		{
			Name:   "slam",
			Window: 2 * time.Second,
			Attacks: []AttackDefinition{
				{Name: "ground_slam", Damage: 25, KnockbackForce: 10, Range: 3.5,
					AnimationDuration: 1200 * time.Millisecond, DamageDelay: 600 * time.Millisecond, MaxTargets: 4},
			},
		},
	}

	m := &Moveset{chains: make(map[string]ComboChain, len(chains))}
	for _, c := range chains {
		m.chains[c.Name] = c
	}
	return m
}
