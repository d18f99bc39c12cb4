package viewport

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const maxPitch = 89.9 * math.Pi / 180

// Perspective describes a perspective camera. Angles are in radians.
type Perspective struct {
	Position r3.Vec

	// Rotation around the Y axis. Zero looks towards +Z.
	Yaw float64

	// Rotation above the horizon. It is clamped just below a quarter turn.
	Pitch float64

	// The vertical field of view.
	FOV float64

	// Width divided by height.
	Aspect float64

	Near float64
	Far  float64
}

type plane struct {
	normal r3.Vec
	d      float64
}

func newPlane(normal, point r3.Vec) plane {
	normal = r3.Unit(normal)
	return plane{
		normal: normal,
		d:      -r3.Dot(normal, point),
	}
}

func (p plane) distance(v r3.Vec) float64 {
	return r3.Dot(p.normal, v) + p.d
}

// Frustum is the volume seen by a perspective camera, bounded by six planes
// facing inwards.
type Frustum struct {
	planes [6]plane
}

// NewFrustum returns the frustum of a perspective camera.
func NewFrustum(p Perspective) *Frustum {
	forward := Forward(p.Yaw, p.Pitch)
	right := r3.Unit(r3.Cross(forward, r3.Vec{Y: 1}))
	up := r3.Cross(right, forward)

	tanV := math.Tan(p.FOV / 2)
	tanH := tanV * p.Aspect

	side := func(edge, axis r3.Vec) plane {
		n := r3.Cross(edge, axis)
		if r3.Dot(n, forward) < 0 {
			n = r3.Scale(-1, n)
		}
		return newPlane(n, p.Position)
	}

	return &Frustum{
		planes: [6]plane{
			newPlane(forward, r3.Add(p.Position, r3.Scale(p.Near, forward))),
			newPlane(r3.Scale(-1, forward), r3.Add(p.Position, r3.Scale(p.Far, forward))),
			side(r3.Sub(forward, r3.Scale(tanH, right)), up),
			side(r3.Add(forward, r3.Scale(tanH, right)), up),
			side(r3.Sub(forward, r3.Scale(tanV, up)), right),
			side(r3.Add(forward, r3.Scale(tanV, up)), right),
		},
	}
}

// Forward returns the unit view direction for the given angles.
func Forward(yaw, pitch float64) r3.Vec {
	pitch = max(-maxPitch, min(maxPitch, pitch))
	return r3.Vec{
		X: math.Sin(yaw) * math.Cos(pitch),
		Y: math.Sin(pitch),
		Z: math.Cos(yaw) * math.Cos(pitch),
	}
}

// IsBoxVisible reports whether an axis-aligned cube intersects the frustum.
// The test is conservative: boxes near the frustum corners may be reported
// visible.
func (f *Frustum) IsBoxVisible(cx, cy, cz, halfExtent float64) bool {
	center := r3.Vec{X: cx, Y: cy, Z: cz}

	for _, p := range f.planes {
		radius := halfExtent * (math.Abs(p.normal.X) + math.Abs(p.normal.Y) + math.Abs(p.normal.Z))
		if p.distance(center) < -radius {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether a point is inside the frustum.
func (f *Frustum) ContainsPoint(v r3.Vec) bool {
	for _, p := range f.planes {
		if p.distance(v) < 0 {
			return false
		}
	}
	return true
}

// Everything is a viewport that sees every box.
type Everything struct{}

func (Everything) IsBoxVisible(cx, cy, cz, halfExtent float64) bool {
	return true
}
