package featureflag

type Flag string

const (
	// Visits every section in range regardless of the connectivity between
	// section faces.
	FlagDisableOcclusionCulling Flag = "DISABLE_OCCLUSION_CULLING"

	// Ignores the fog when computing the search distance.
	FlagDisableFogOcclusion Flag = "DISABLE_FOG_OCCLUSION"

	// Submits every pending build as a blocking task each frame.
	FlagUpdateImmediately Flag = "UPDATE_IMMEDIATELY"

	// Stops publishing frame reports to debug stream clients.
	FlagDisableDebugStream Flag = "DISABLE_DEBUG_STREAM"

	// Stops applying random block edits during a simulation.
	FlagDisableEdits Flag = "DISABLE_EDITS"
)

func (f Flag) String() string {
	return string(f)
}
