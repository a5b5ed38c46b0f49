package build

// A pipeline stage.
type Stage int

const (
	StageIdle Stage = iota
	StageResolving
	StageCompiling
	StageConverting
	StageWriting
	StageDone
)

var stageNames = [...]string{
	StageIdle:       "idle",
	StageResolving:  "resolving",
	StageCompiling:  "compiling",
	StageConverting: "converting",
	StageWriting:    "writing",
	StageDone:       "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
