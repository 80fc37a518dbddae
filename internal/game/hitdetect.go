package game

import (
	"math"
	"sort"
)

// BodyOwners maps geometry bodies back to the characters that own them.
type BodyOwners interface {
	OwnerOf(id BodyID) (*Character, bool)
}

// Hit is one target found by a detection pass.
type Hit struct {
	Target   *Character
	Distance float64 // origin to the nearest qualifying body
}

// HitDetector turns an attack shape into the set of characters it reaches.
type HitDetector struct {
	geometry  GeometryQuery
	owners    BodyOwners
	eyeHeight float64
}

// NewHitDetector creates a detector. Line-of-sight rays are cast between
// points eyeHeight above the attack origin and each candidate's feet.
func NewHitDetector(geometry GeometryQuery, owners BodyOwners, eyeHeight float64) *HitDetector {
	return &HitDetector{geometry: geometry, owners: owners, eyeHeight: eyeHeight}
}

// Detect returns every living, hostile character reached by attack when
// swung from origin along forward. Each character appears at most once no
// matter how many of its bodies qualify. Order is unspecified.
func (d *HitDetector) Detect(attacker *Character, origin, forward Vec3, attack AttackDefinition) []Hit {
	if attack.Range <= 0 {
		return nil
	}
	candidates := d.geometry.OverlapShape(origin, attack.Range, attack.ConeAngleDegrees, LayerCombatant)
	if len(candidates) == 0 {
		return nil
	}

	halfCone := attack.ConeAngleDegrees / 2 * math.Pi / 180
	fwd := forward.Horizontal().Normalize()
	eye := Up.Scale(d.eyeHeight)

	best := make(map[CharacterID]int, len(candidates))
	hits := make([]Hit, 0, len(candidates))

	for _, body := range candidates {
		target, ok := d.owners.OwnerOf(body.ID)
		if !ok || target.IsDead() {
			continue
		}
		if attacker != nil && (target.ID() == attacker.ID() || sameTeam(attacker, target)) {
			continue
		}

		toBody := body.Position.Sub(origin)
		if attack.ConeAngleDegrees > 0 && attack.ConeAngleDegrees < 360 && !withinCone(fwd, toBody, halfCone) {
			continue
		}

		dist := toBody.Len()
		if i, seen := best[target.ID()]; seen {
			// already accepted through another body; keep the nearest distance
			if dist < hits[i].Distance {
				hits[i].Distance = dist
			}
			continue
		}

		feet := target.Position()
		if !d.geometry.LineOfSight(origin.Add(eye), Vec3{X: body.Position.X, Y: feet.Y + d.eyeHeight, Z: body.Position.Z}) {
			continue
		}

		best[target.ID()] = len(hits)
		hits = append(hits, Hit{Target: target, Distance: dist})
	}
	return hits
}

// withinCone tests the horizontal angle between fwd and dir against halfCone.
// A candidate at the origin is inside any cone.
func withinCone(fwd, dir Vec3, halfCone float64) bool {
	flat := dir.Horizontal()
	if flat.Len() < epsilon || fwd == (Vec3{}) {
		return true
	}
	cos := fwd.Dot(flat.Normalize())
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) <= halfCone+1e-9
}

func sameTeam(a, b *Character) bool {
	return a.Team() != "" && a.Team() == b.Team()
}

// SortByDistance orders hits nearest first.
func SortByDistance(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Target.ID() < hits[j].Target.ID()
	})
}

// CapHits keeps at most max hits; max <= 0 means unlimited.
func CapHits(hits []Hit, max int) []Hit {
	if max > 0 && len(hits) > max {
		return hits[:max]
	}
	return hits
}
