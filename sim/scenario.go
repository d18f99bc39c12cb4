package sim

import (
	"math"
	"os"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/world"
	"gopkg.in/yaml.v3"
)

const ErrTypeInvalidScenario = "sim-invalid-scenario"

// Scenario describes a simulation run.
type Scenario struct {
	Name string `yaml:"name"`

	World world.Config `yaml:"world"`

	// The number of chunk columns loaded around the camera, which is also the
	// render distance in sections.
	ViewDistance int32 `yaml:"view_distance"`

	// The maximum number of chunk columns loaded per frame.
	ChunkLoadsPerFrame int `yaml:"chunk_loads_per_frame"`

	// The number of build workers. Zero uses one worker per CPU.
	Workers int `yaml:"workers"`

	// The number of frames a headless run lasts.
	Frames int `yaml:"frames"`

	FrameDuration time.Duration `yaml:"frame_duration"`

	Camera CameraPath `yaml:"camera"`
	Edits  Edits      `yaml:"edits"`
	Fog    Fog        `yaml:"fog"`
}

// CameraPath describes how the camera moves.
type CameraPath struct {
	// The starting column, in blocks.
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`

	// The starting height above the surface, in blocks.
	Height float64 `yaml:"height"`

	// The movement per frame, in blocks.
	Velocity [3]float64 `yaml:"velocity"`

	// Angles are in degrees. The yaw speed is per frame.
	Yaw      float64 `yaml:"yaw"`
	YawSpeed float64 `yaml:"yaw_speed"`
	Pitch    float64 `yaml:"pitch"`
	FOV      float64 `yaml:"fov"`
	Aspect   float64 `yaml:"aspect"`

	// Disables occlusion culling while the camera is inside an opaque block.
	Spectator bool `yaml:"spectator"`
}

// Edits describes the random block edits applied around the camera.
type Edits struct {
	PerFrame int   `yaml:"per_frame"`
	Radius   int32 `yaml:"radius"`

	// Edits closer than this many blocks to the camera request important
	// rebuilds.
	ImportantRadius int32 `yaml:"important_radius"`
}

type Fog struct {
	Alpha float64 `yaml:"alpha"`
	End   float64 `yaml:"end"`
}

// DefaultScenario returns a slow flight over the terrain.
func DefaultScenario() Scenario {
	return Scenario{
		Name:               "default",
		World:              world.DefaultConfig(),
		ViewDistance:       8,
		ChunkLoadsPerFrame: 16,
		Frames:             240,
		FrameDuration:      time.Second / 60,
		Camera: CameraPath{
			Height:   24,
			Velocity: [3]float64{0.4, 0, 0.25},
			YawSpeed: 0.5,
			Pitch:    -20,
			FOV:      70,
			Aspect:   16.0 / 9.0,
		},
		Edits: Edits{
			PerFrame:        2,
			Radius:          24,
			ImportantRadius: 8,
		},
	}
}

// ParseScenario decodes a YAML scenario. Missing fields keep their default
// values.
func ParseScenario(b []byte) (Scenario, error) {
	s := DefaultScenario()
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, errors.New("decoding scenario failed").
			WithType(ErrTypeInvalidScenario).
			Wrap(err)
	}
	return s, s.validate()
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return DefaultScenario(), errors.New("reading scenario failed").
			WithTag("path", path).
			Wrap(err)
	}
	return ParseScenario(b)
}

func (s Scenario) validate() error {
	switch {
	case s.ViewDistance < 1:
		return invalidScenario("view distance must be positive", "view_distance", s.ViewDistance)
	case s.ChunkLoadsPerFrame < 1:
		return invalidScenario("chunk loads per frame must be positive", "chunk_loads_per_frame", s.ChunkLoadsPerFrame)
	case s.World.MaxSectionY < s.World.MinSectionY:
		return invalidScenario("world height is negative", "max_section_y", s.World.MaxSectionY)
	case s.FrameDuration <= 0:
		return invalidScenario("frame duration must be positive", "frame_duration", s.FrameDuration)
	case s.Camera.FOV <= 0 || s.Camera.FOV >= 180:
		return invalidScenario("field of view must be between 0 and 180 degrees", "fov", s.Camera.FOV)
	case s.Camera.Aspect <= 0:
		return invalidScenario("aspect ratio must be positive", "aspect", s.Camera.Aspect)
	case s.Edits.PerFrame < 0 || s.Edits.Radius < 0:
		return invalidScenario("edits must not be negative", "per_frame", s.Edits.PerFrame)
	default:
		return nil
	}
}

func invalidScenario(msg, key string, value any) error {
	return errors.New(msg).
		WithType(ErrTypeInvalidScenario).
		WithTag(key, value)
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
