package accesslogic

// Level is a permission level. create-only is numerically equal to
// contribute but semantically narrower (never grants update/delete/read),
// so it is modeled as a struct rather than a plain int — the CreateOnly
// invariant is then type-checkable at every can* predicate instead of
// string-matched against a separate "createOnly" tag.
type Level struct {
	Rank       int
	CreateOnly bool
}

var (
	LevelNone       = Level{Rank: -1}
	LevelRead       = Level{Rank: 0}
	LevelContribute = Level{Rank: 1}
	LevelCreateOnly = Level{Rank: 1, CreateOnly: true}
	LevelManage     = Level{Rank: 2}
)

// AtLeast reports whether l is at least as high as other, by rank alone
// (create-only and contribute compare equal).
func (l Level) AtLeast(other Level) bool { return l.Rank >= other.Rank }

// String names the level for logging/debugging.
func (l Level) String() string {
	switch {
	case l.Rank == LevelManage.Rank:
		return "manage"
	case l.CreateOnly:
		return "create-only"
	case l.Rank == LevelContribute.Rank:
		return "contribute"
	case l.Rank == LevelRead.Rank:
		return "read"
	default:
		return "none"
	}
}
