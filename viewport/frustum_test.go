package viewport

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rapid"
)

func perspective(yaw, pitch float64) Perspective {
	return Perspective{
		Yaw:    yaw,
		Pitch:  pitch,
		FOV:    math.Pi / 2,
		Aspect: 16.0 / 9.0,
		Near:   0.05,
		Far:    256,
	}
}

func TestForward(t *testing.T) {
	f := Forward(0, 0)
	require.InDelta(t, 1, f.Z, 1e-9)

	f = Forward(math.Pi/2, 0)
	require.InDelta(t, 1, f.X, 1e-9)

	f = Forward(0, math.Pi)
	require.Less(t, f.Y, 1.0)
	require.InDelta(t, 1, r3.Norm(f), 1e-9)
}

func TestFrustum(t *testing.T) {
	f := NewFrustum(perspective(0, 0))

	t.Run("boxes in front are visible", func(t *testing.T) {
		require.True(t, f.IsBoxVisible(0, 0, 20, 8))
		require.True(t, f.ContainsPoint(r3.Vec{Z: 10}))
	})

	t.Run("boxes behind are not visible", func(t *testing.T) {
		require.False(t, f.IsBoxVisible(0, 0, -40, 8))
		require.False(t, f.ContainsPoint(r3.Vec{Z: -1}))
	})

	t.Run("boxes beyond the far plane are not visible", func(t *testing.T) {
		require.False(t, f.IsBoxVisible(0, 0, 300, 8))
	})

	t.Run("boxes outside the sides are not visible", func(t *testing.T) {
		require.False(t, f.IsBoxVisible(200, 0, 20, 8))
		require.False(t, f.IsBoxVisible(0, 200, 20, 8))
	})

	t.Run("boxes crossing a plane are visible", func(t *testing.T) {
		require.True(t, f.IsBoxVisible(0, 0, 0, 8))
		require.True(t, f.IsBoxVisible(0, 0, -7, 8))
	})

	t.Run("the camera box is always visible", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			yaw := rapid.Float64Range(-math.Pi, math.Pi).Draw(t, "yaw")
			pitch := rapid.Float64Range(-math.Pi/2, math.Pi/2).Draw(t, "pitch")

			p := perspective(yaw, pitch)
			p.Position = r3.Vec{X: 3, Y: 70, Z: -5}
			f := NewFrustum(p)
			require.True(t, f.IsBoxVisible(p.Position.X, p.Position.Y, p.Position.Z, 1))

			ahead := r3.Add(p.Position, r3.Scale(32, Forward(yaw, pitch)))
			require.True(t, f.ContainsPoint(ahead))
		})
	})
}

func TestEverything(t *testing.T) {
	require.True(t, Everything{}.IsBoxVisible(1e9, -1e9, 0, 0))
}
