package game

// BodyID identifies one collision body registered with the world geometry.
// A character may own several bodies (one per hurtbox).
type BodyID uint32

// LayerMask selects which bodies a query sees.
type LayerMask uint32

const (
	LayerCombatant LayerMask = 1 << iota // living characters, hittable
	LayerCorpse                          // dead characters awaiting removal
	LayerObstacle                        // static walls, blocks line of sight
)

// Body is a candidate returned by an overlap query.
type Body struct {
	ID       BodyID
	Position Vec3
}

// GroundPoint is the result of a successful ground probe.
type GroundPoint struct {
	Position Vec3
	Normal   Vec3
}

// GeometryQuery is the world geometry consumed by hit detection and locomotion.
// Implementations report "nothing found" instead of failing.
type GeometryQuery interface {
	// OverlapShape returns bodies on layers within radius of origin. coneAngle
	// (degrees) is advisory; callers apply the exact cone test themselves.
	OverlapShape(origin Vec3, radius, coneAngle float64, layers LayerMask) []Body
	// LineOfSight reports whether the segment from->to is free of obstacles.
	LineOfSight(from, to Vec3) bool
	// GroundProbe casts down from pos by at most depth.
	GroundProbe(pos Vec3, depth float64) (GroundPoint, bool)
	// NearestNavigablePoint projects pos onto the walkable floor within searchRadius.
	NearestNavigablePoint(pos Vec3, searchRadius float64) (Vec3, bool)
}

// Navigator answers pathing queries over an existing navigation graph.
type Navigator interface {
	// NextWaypoint returns the next point to steer toward on the way from
	// from to to, or false if to is unreachable.
	NextWaypoint(from, to Vec3) (Vec3, bool)
}

// BodyTracker keeps the geometry's view of character bodies current.
type BodyTracker interface {
	UpsertBody(body Body, radius float64, layer LayerMask)
	RemoveBody(id BodyID)
}

// World is everything the engine needs from the environment.
type World interface {
	GeometryQuery
	Navigator
	BodyTracker
}
