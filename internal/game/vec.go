package game

import "math"

// Vec3 is a world-space vector. Y is up; X/Z form the ground plane.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Up is the world up axis
var Up = Vec3{Y: 1}

// V3 builds a vector
func V3(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3        { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3        { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3   { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64     { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64           { return math.Sqrt(v.Dot(v)) }
func (v Vec3) Dist(o Vec3) float64    { return v.Sub(o).Len() }
func (v Vec3) Horizontal() Vec3       { return Vec3{X: v.X, Z: v.Z} }
func (v Vec3) HorizontalLen() float64 { return math.Hypot(v.X, v.Z) }

// Normalize returns the unit vector, or the zero vector when v is degenerate.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < epsilon {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// ClampLen limits the magnitude of v to max.
func (v Vec3) ClampLen(max float64) Vec3 {
	l := v.Len()
	if l <= max || l < epsilon {
		return v
	}
	return v.Scale(max / l)
}

// ClampHorizontal limits the X/Z magnitude of v to max, leaving Y untouched.
func (v Vec3) ClampHorizontal(max float64) Vec3 {
	l := v.HorizontalLen()
	if l <= max || l < epsilon {
		return v
	}
	s := max / l
	return Vec3{X: v.X * s, Y: v.Y, Z: v.Z * s}
}

const epsilon = 1e-6

// forwardFromYaw returns the horizontal unit vector for a heading
func forwardFromYaw(yaw float64) Vec3 {
	return Vec3{X: math.Cos(yaw), Z: math.Sin(yaw)}
}

// yawOf returns the heading of a horizontal direction
func yawOf(dir Vec3) float64 {
	return math.Atan2(dir.Z, dir.X)
}

// normalizeAngle wraps an angle to [-π, π]
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle+math.Pi, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	return angle - math.Pi
}
