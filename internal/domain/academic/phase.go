package academic

import "strings"

// Phases of the Kurikulum Merdeka for graded levels.
const (
	PhaseA = "A"
	PhaseB = "B"
	PhaseC = "C"
	PhaseD = "D"
	PhaseE = "E"
	PhaseF = "F"
)

var knownPhases = map[string]bool{
	PhaseA: true, PhaseB: true, PhaseC: true, PhaseD: true, PhaseE: true, PhaseF: true,
}

// PhaseTable maps a grade number to its phase.
type PhaseTable map[int]string

var DefaultPhaseTable = PhaseTable{
	1: PhaseA, 2: PhaseA,
	3: PhaseB, 4: PhaseB,
	5: PhaseC, 6: PhaseC,
	7: PhaseD, 8: PhaseD, 9: PhaseD,
	10: PhaseE,
	11: PhaseF, 12: PhaseF,
}

func NormalizePhase(phase string) (string, bool) {
	p := strings.ToUpper(strings.TrimSpace(phase))
	return p, knownPhases[p]
}

// PhaseResolver derives the phase of a classroom's level. It never fails: PAUD
// and unmapped levels resolve to "no phase", which callers treat as unfiltered.
type PhaseResolver struct {
	Table PhaseTable
}

func NewPhaseResolver(table PhaseTable) PhaseResolver {
	if table == nil {
		table = DefaultPhaseTable
	}
	return PhaseResolver{Table: table}
}

func (r PhaseResolver) Resolve(level Level) (string, bool) {
	if level.IsPAUD {
		return "", false
	}
	if p, ok := NormalizePhase(level.Phase); ok {
		return p, true
	}
	if level.Grade <= 0 {
		return "", false
	}
	p, ok := r.Table[level.Grade]
	return p, ok
}

func (r PhaseResolver) ResolveClassroom(c Classroom) (string, bool) {
	return r.Resolve(c.Level)
}

// EligibleObjectives filters objectives by phase. Without a phase every
// objective is eligible; objectives with no phase of their own always are.
func EligibleObjectives(all []LearningObjective, phase string, hasPhase bool) []LearningObjective {
	if !hasPhase {
		out := make([]LearningObjective, len(all))
		copy(out, all)
		return out
	}
	out := make([]LearningObjective, 0, len(all))
	for _, obj := range all {
		if obj.Phase == "" || strings.EqualFold(obj.Phase, phase) {
			out = append(out, obj)
		}
	}
	return out
}

// WithSelected appends objectives referenced by existing grades that the phase
// filter removed, so historical selections stay visible.
func WithSelected(eligible, all []LearningObjective, selected map[int64]bool) []LearningObjective {
	present := make(map[int64]bool, len(eligible))
	for _, obj := range eligible {
		present[obj.ID] = true
	}
	out := eligible
	for _, obj := range all {
		if selected[obj.ID] && !present[obj.ID] {
			out = append(out, obj)
			present[obj.ID] = true
		}
	}
	return out
}
