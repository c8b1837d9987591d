package strategy

import (
	"fmt"

	"github.com/talgya/lingnet/internal/world"
)

// LearnMethod selects how a weighted target becomes the adopted value.
type LearnMethod uint8

const (
	// CopyInput adopts the target unchanged (continuous drift).
	CopyInput LearnMethod = iota
	// Clamp snaps the target to 0 or 1 around a cutoff (categorical convergence).
	Clamp
)

var learnNames = map[LearnMethod]string{
	CopyInput: "copy-input",
	Clamp:     "clamp",
}

// DefaultCutoff is the clamp threshold.
const DefaultCutoff = 0.5

func (m LearnMethod) String() string {
	if n, ok := learnNames[m]; ok {
		return n
	}
	return fmt.Sprintf("learning(%d)", uint8(m))
}

// ParseLearning maps a name such as "clamp" to a method.
func ParseLearning(name string) (LearnMethod, error) {
	return parseName("learning", name, learnNames)
}

// LearningNames lists the accepted learning names.
func LearningNames() []string { return sortedNames(learnNames) }

// Learning maps a weighting target to the raw value fed into a settlement's update.
type Learning struct {
	Method LearnMethod
	Cutoff float64 // clamp only; 0 = DefaultCutoff
}

func (l Learning) cutoff() float64 {
	if l.Cutoff != 0 {
		return l.Cutoff
	}
	return DefaultCutoff
}

func (l Learning) String() string {
	if l.Method == Clamp {
		return fmt.Sprintf("%s(cutoff=%g)", l.Method, l.cutoff())
	}
	return l.Method.String()
}

// Learn returns the value s adopts for target.
func (l Learning) Learn(_ *world.Settlement, target float64) float64 {
	if l.Method != Clamp {
		return target
	}
	c := l.cutoff()
	switch {
	case target > c:
		return 1.0
	case target < c:
		return 0.0
	default:
		return target
	}
}
