package scheduler

// UpdateType is the priority class of a section build request.
type UpdateType uint8

const (
	// UpdateNone means that no build is pending.
	UpdateNone UpdateType = iota
	InitialBuild
	Rebuild
	ImportantRebuild

	updateTypeCount = int(ImportantRebuild) + 1
)

// UpdateTypes lists the build priority classes, lowest priority first.
var UpdateTypes = []UpdateType{InitialBuild, Rebuild, ImportantRebuild}

// Important reports whether the build must complete before the next frame is
// drawn.
func (t UpdateType) Important() bool {
	return t == ImportantRebuild
}

func (t UpdateType) String() string {
	switch t {
	case InitialBuild:
		return "initial_build"
	case Rebuild:
		return "rebuild"
	case ImportantRebuild:
		return "important_rebuild"
	default:
		return "none"
	}
}

// CanPromote reports whether a pending request of type prev can be replaced
// by a request of type next.
func CanPromote(prev, next UpdateType) bool {
	return prev == UpdateNone || (prev == Rebuild && next == ImportantRebuild)
}
