package reportcard

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/assessment"
)

// classInputs holds every assessment row of one generation batch, read in bulk
// before any card is assembled.
type classInputs struct {
	subjects   []academic.Subject
	objectives map[int64]academic.LearningObjective
	aspects    []academic.DevelopmentalAspect
	activities []academic.ExtracurricularActivity
	projects   []academic.P5Project

	grades          map[int64][]assessment.GradeRecord
	developmental   map[int64]map[int64]string
	extracurricular map[int64]map[int64]assessment.LevelRecord
	p5              map[int64]map[int64]assessment.LevelRecord
	attendance      map[int64]assessment.AttendanceRecord
	notes           map[int64]assessment.NoteRecord
}

func (s *Service) collect(ctx context.Context, req GenerateRequest, classroom academic.Classroom, ids []int64) (*classInputs, error) {
	in := &classInputs{
		grades:          map[int64][]assessment.GradeRecord{},
		developmental:   map[int64]map[int64]string{},
		extracurricular: map[int64]map[int64]assessment.LevelRecord{},
		p5:              map[int64]map[int64]assessment.LevelRecord{},
		attendance:      map[int64]assessment.AttendanceRecord{},
		notes:           map[int64]assessment.NoteRecord{},
	}

	if classroom.Level.IsPAUD {
		if err := s.collectPAUD(ctx, req, ids, in); err != nil {
			return nil, err
		}
	} else {
		if err := s.collectGrades(ctx, req, ids, in); err != nil {
			return nil, err
		}
	}

	var err error
	if in.activities, err = s.academic.ExtracurricularActivities(ctx); err != nil {
		return nil, err
	}
	extra, err := s.inputs.Extracurricular(ctx, req.AcademicYearID, req.Semester, 0, ids)
	if err != nil {
		return nil, err
	}
	groupLevels(in.extracurricular, extra)

	if in.projects, err = s.academic.P5Projects(ctx, req.AcademicYearID); err != nil {
		return nil, err
	}
	p5, err := s.inputs.P5(ctx, req.AcademicYearID, req.Semester, 0, ids)
	if err != nil {
		return nil, err
	}
	groupLevels(in.p5, p5)

	attendance, err := s.inputs.Attendance(ctx, req.AcademicYearID, req.Semester, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range attendance {
		in.attendance[r.StudentID] = r
	}
	notes, err := s.inputs.Notes(ctx, req.AcademicYearID, req.Semester, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range notes {
		in.notes[r.StudentID] = r
	}
	return in, nil
}

// collectGrades reads the grade rows and resolves every referenced objective
// by id, so objectives outside the current phase still print.
func (s *Service) collectGrades(ctx context.Context, req GenerateRequest, ids []int64, in *classInputs) error {
	var err error
	if in.subjects, err = s.academic.ListSubjects(ctx); err != nil {
		return err
	}
	grades, err := s.inputs.Grades(ctx, req.ClassroomID, req.AcademicYearID, req.Semester, 0, ids)
	if err != nil {
		return err
	}
	var refs []int64
	for _, g := range grades {
		in.grades[g.StudentID] = append(in.grades[g.StudentID], g)
		if g.BestTPID != nil {
			refs = append(refs, *g.BestTPID)
		}
		if g.ImprovementTPID != nil {
			refs = append(refs, *g.ImprovementTPID)
		}
	}
	in.objectives = map[int64]academic.LearningObjective{}
	if len(refs) == 0 {
		return nil
	}
	in.objectives, err = s.academic.ObjectivesByIDs(ctx, refs)
	return err
}

func (s *Service) collectPAUD(ctx context.Context, req GenerateRequest, ids []int64, in *classInputs) error {
	var err error
	if in.aspects, err = s.academic.DevelopmentalAspects(ctx); err != nil {
		return err
	}
	records, err := s.inputs.Developmental(ctx, req.AcademicYearID, req.Semester, ids)
	if err != nil {
		return err
	}
	for _, r := range records {
		if in.developmental[r.StudentID] == nil {
			in.developmental[r.StudentID] = map[int64]string{}
		}
		in.developmental[r.StudentID][r.AspectID] = r.Description
	}
	return nil
}

func groupLevels(dst map[int64]map[int64]assessment.LevelRecord, records []assessment.LevelRecord) {
	for _, r := range records {
		if dst[r.StudentID] == nil {
			dst[r.StudentID] = map[int64]assessment.LevelRecord{}
		}
		dst[r.StudentID][r.ItemID] = r
	}
}

// snapshot assembles one student's card. Categories without rows are empty,
// never missing.
func (in *classInputs) snapshot(studentID int64, track, phase string) Snapshot {
	snap := Snapshot{
		Version:         SnapshotVersion,
		Track:           track,
		Phase:           phase,
		P5:              []P5Line{},
		Extracurricular: []ExtracurricularLine{},
	}
	if track == TrackPAUD {
		snap.PAUD = in.paudLines(studentID)
	} else {
		snap.SubjectGrades = in.gradeLines(studentID)
	}

	levels := in.extracurricular[studentID]
	for _, act := range in.activities {
		if r, ok := levels[act.ID]; ok {
			snap.Extracurricular = append(snap.Extracurricular, ExtracurricularLine{
				Name:        act.Name,
				Level:       r.Level,
				Description: r.Description,
			})
		}
	}
	projects := in.p5[studentID]
	for _, p := range in.projects {
		if r, ok := projects[p.ID]; ok {
			snap.P5 = append(snap.P5, P5Line{
				Theme:       p.Theme,
				Name:        p.Name,
				Level:       r.Level,
				Description: r.Description,
			})
		}
	}

	if a, ok := in.attendance[studentID]; ok {
		snap.Attendance = Attendance{Sick: a.Sick, Permission: a.Permission, Absent: a.Absent}
	}
	if n, ok := in.notes[studentID]; ok {
		snap.Notes = Notes{Teacher: n.TeacherNote, Character: n.CharacterNote}
	}
	return snap
}

func (in *classInputs) gradeLines(studentID int64) []SubjectGradeLine {
	bySubject := map[int64]assessment.GradeRecord{}
	for _, g := range in.grades[studentID] {
		bySubject[g.SubjectID] = g
	}
	lines := []SubjectGradeLine{}
	for _, subj := range in.subjects {
		g, ok := bySubject[subj.ID]
		if !ok {
			continue
		}
		best := in.objectiveText(g.BestTPID)
		improvement := in.objectiveText(g.ImprovementTPID)
		lines = append(lines, SubjectGradeLine{
			SubjectID:     subj.ID,
			SubjectName:   subj.Name,
			Grade:         g.Grade,
			BestTP:        best,
			ImprovementTP: improvement,
			Description:   Describe(best, improvement),
		})
	}
	return lines
}

func (in *classInputs) objectiveText(id *int64) []string {
	if id == nil {
		return []string{}
	}
	obj, ok := in.objectives[*id]
	if !ok {
		return []string{}
	}
	text := strings.TrimSpace(obj.Description)
	if text == "" {
		text = obj.Code
	}
	return []string{text}
}

// paudLines lists every aspect, grouped by aspect type in first-seen order.
func (in *classInputs) paudLines(studentID int64) []DevelopmentalLine {
	typeOrder := map[string]int{}
	for _, a := range in.aspects {
		if _, ok := typeOrder[a.AspectType]; !ok {
			typeOrder[a.AspectType] = len(typeOrder)
		}
	}
	aspects := append([]academic.DevelopmentalAspect(nil), in.aspects...)
	sort.SliceStable(aspects, func(i, j int) bool {
		return typeOrder[aspects[i].AspectType] < typeOrder[aspects[j].AspectType]
	})

	descriptions := in.developmental[studentID]
	lines := make([]DevelopmentalLine, 0, len(aspects))
	for _, a := range aspects {
		lines = append(lines, DevelopmentalLine{
			AspectType:  a.AspectType,
			AspectName:  a.Name,
			Description: descriptions[a.ID],
		})
	}
	return lines
}

// Describe composes the competency sentence printed under a subject grade.
func Describe(best, improvement []string) string {
	var parts []string
	if text := joinObjectives(best); text != "" {
		parts = append(parts, "Menunjukkan penguasaan yang baik dalam "+text+".")
	}
	if text := joinObjectives(improvement); text != "" {
		parts = append(parts, "Perlu bantuan dalam "+text+".")
	}
	return strings.Join(parts, " ")
}

func joinObjectives(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimRight(strings.TrimSpace(item), ".")
		if item == "" {
			continue
		}
		out = append(out, lowerFirst(item))
	}
	return strings.Join(out, ", ")
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
