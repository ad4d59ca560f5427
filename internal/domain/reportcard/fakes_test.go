package reportcard

import (
	"context"
	"errors"
	"time"

	"pkbm/internal/domain/academic"
	"pkbm/internal/domain/assessment"
	"pkbm/internal/domain/auth"
)

const (
	yearID     int64 = 1
	otherYear  int64 = 2
	class1A    int64 = 10
	classPAUD  int64 = 20
	classOther int64 = 30
	subjectBI  int64 = 5
	subjectMTK int64 = 6
	activityPr int64 = 7
	projectID  int64 = 8
	studentAna int64 = 100
	studentBud int64 = 101
	studentCit int64 = 200
	tpRead     int64 = 300
	tpListen   int64 = 301
	tpPhaseC   int64 = 302
	aspectNAM  int64 = 40
	aspectFis  int64 = 41
	aspectBhs  int64 = 42
)

var errDiskFull = errors.New("disk full")

var generatedAt = time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC)

type fakeAcademic struct {
	calls int
}

func (f *fakeAcademic) AcademicYear(_ context.Context, id int64) (academic.AcademicYear, error) {
	f.calls++
	switch id {
	case yearID:
		return academic.AcademicYear{ID: yearID, Name: "2024/2025", IsActive: true}, nil
	case otherYear:
		return academic.AcademicYear{ID: otherYear, Name: "2023/2024"}, nil
	}
	return academic.AcademicYear{}, academic.ErrAcademicYearNotFound
}

func (f *fakeAcademic) Classroom(ctx context.Context, id int64) (academic.Classroom, error) {
	c, _, _, err := f.ClassroomPhase(ctx, id)
	return c, err
}

func (f *fakeAcademic) ClassroomPhase(_ context.Context, id int64) (academic.Classroom, string, bool, error) {
	f.calls++
	switch id {
	case class1A:
		return academic.Classroom{
			ID:                  class1A,
			Name:                "Kelas 1A",
			AcademicYearID:      yearID,
			AcademicYearName:    "2024/2025",
			Level:               academic.Level{Name: "Kelas 1", Grade: 1},
			HomeroomTeacherName: "siti rahmawati",
			HomeroomTeacherNIP:  "198001012005012001",
		}, academic.PhaseA, true, nil
	case classPAUD:
		return academic.Classroom{
			ID:               classPAUD,
			Name:             "KB Melati",
			AcademicYearID:   yearID,
			AcademicYearName: "2024/2025",
			Level:            academic.Level{Name: "Kelompok Bermain", IsPAUD: true},
		}, "", false, nil
	}
	return academic.Classroom{}, "", false, academic.ErrClassroomNotFound
}

func (f *fakeAcademic) EnrolledStudents(_ context.Context, classroomID int64) ([]academic.Student, error) {
	f.calls++
	switch classroomID {
	case class1A:
		return []academic.Student{
			{ID: studentAna, Name: "Ana", ClassroomID: class1A, NIS: "2401", NISN: "0012345678"},
			{ID: studentBud, Name: "Budi", ClassroomID: class1A, NIS: "2402"},
		}, nil
	case classPAUD:
		return []academic.Student{{ID: studentCit, Name: "Citra", ClassroomID: classPAUD}}, nil
	}
	return nil, nil
}

func (f *fakeAcademic) Student(ctx context.Context, id int64) (academic.Student, error) {
	for _, classroomID := range []int64{class1A, classPAUD} {
		students, _ := f.EnrolledStudents(ctx, classroomID)
		for _, st := range students {
			if st.ID == id {
				return st, nil
			}
		}
	}
	return academic.Student{}, academic.ErrStudentNotFound
}

func (f *fakeAcademic) ListSubjects(context.Context) ([]academic.Subject, error) {
	f.calls++
	return []academic.Subject{
		{ID: subjectBI, Name: "Bahasa Indonesia", Code: "BIND", SortOrder: 1},
		{ID: subjectMTK, Name: "Matematika", Code: "MTK", SortOrder: 2},
	}, nil
}

func (f *fakeAcademic) ObjectivesByIDs(_ context.Context, ids []int64) (map[int64]academic.LearningObjective, error) {
	f.calls++
	all := map[int64]academic.LearningObjective{
		tpRead:   {ID: tpRead, SubjectID: subjectBI, Phase: academic.PhaseA, Code: "BI.A.1", Description: "Dapat membaca kalimat sederhana"},
		tpListen: {ID: tpListen, SubjectID: subjectBI, Phase: academic.PhaseA, Code: "BI.A.2", Description: "Menyimak cerita pendek."},
		tpPhaseC: {ID: tpPhaseC, SubjectID: subjectBI, Phase: academic.PhaseC, Code: "BI.C.1", Description: "Menulis paragraf"},
	}
	out := map[int64]academic.LearningObjective{}
	for _, id := range ids {
		if obj, ok := all[id]; ok {
			out[id] = obj
		}
	}
	return out, nil
}

func (f *fakeAcademic) DevelopmentalAspects(context.Context) ([]academic.DevelopmentalAspect, error) {
	f.calls++
	return []academic.DevelopmentalAspect{
		{ID: aspectNAM, AspectType: "Nilai Agama dan Moral", Name: "Berdoa sebelum kegiatan", SortOrder: 1},
		{ID: aspectFis, AspectType: "Fisik Motorik", Name: "Motorik halus", SortOrder: 2},
		{ID: aspectBhs, AspectType: "Nilai Agama dan Moral", Name: "Berbagi dengan teman", SortOrder: 3},
	}, nil
}

func (f *fakeAcademic) ExtracurricularActivities(context.Context) ([]academic.ExtracurricularActivity, error) {
	f.calls++
	return []academic.ExtracurricularActivity{{ID: activityPr, Name: "Pramuka"}}, nil
}

func (f *fakeAcademic) P5Projects(_ context.Context, academicYearID int64) ([]academic.P5Project, error) {
	f.calls++
	if academicYearID != yearID {
		return nil, nil
	}
	return []academic.P5Project{{ID: projectID, AcademicYearID: yearID, Theme: "Gaya Hidup Berkelanjutan", Name: "Sampahku"}}, nil
}

// fakeInputs serves assessment rows the way the database would: filtered by
// student and never mutated by generation.
type fakeInputs struct {
	grades          []assessment.GradeRecord
	developmental   []assessment.DevelopmentalRecord
	extracurricular []assessment.LevelRecord
	p5              []assessment.LevelRecord
	attendance      []assessment.AttendanceRecord
	notes           []assessment.NoteRecord
	reads           int
}

func pick[T any](rows []T, ids []int64, student func(T) int64) []T {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []T
	for _, r := range rows {
		if want[student(r)] {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeInputs) Grades(_ context.Context, _, _ int64, _ int, _ int64, ids []int64) ([]assessment.GradeRecord, error) {
	f.reads++
	return pick(f.grades, ids, func(r assessment.GradeRecord) int64 { return r.StudentID }), nil
}

func (f *fakeInputs) Developmental(_ context.Context, _ int64, _ int, ids []int64) ([]assessment.DevelopmentalRecord, error) {
	f.reads++
	return pick(f.developmental, ids, func(r assessment.DevelopmentalRecord) int64 { return r.StudentID }), nil
}

func (f *fakeInputs) Extracurricular(_ context.Context, _ int64, _ int, _ int64, ids []int64) ([]assessment.LevelRecord, error) {
	f.reads++
	return pick(f.extracurricular, ids, func(r assessment.LevelRecord) int64 { return r.StudentID }), nil
}

func (f *fakeInputs) P5(_ context.Context, _ int64, _ int, _ int64, ids []int64) ([]assessment.LevelRecord, error) {
	f.reads++
	return pick(f.p5, ids, func(r assessment.LevelRecord) int64 { return r.StudentID }), nil
}

func (f *fakeInputs) Attendance(_ context.Context, _ int64, _ int, ids []int64) ([]assessment.AttendanceRecord, error) {
	f.reads++
	return pick(f.attendance, ids, func(r assessment.AttendanceRecord) int64 { return r.StudentID }), nil
}

func (f *fakeInputs) Notes(_ context.Context, _ int64, _ int, ids []int64) ([]assessment.NoteRecord, error) {
	f.reads++
	return pick(f.notes, ids, func(r assessment.NoteRecord) int64 { return r.StudentID }), nil
}

type cardKey struct {
	studentID, classroomID, academicYearID int64
	semester                               int
}

func keyOf(card ReportCard) cardKey {
	return cardKey{card.StudentID, card.ClassroomID, card.AcademicYearID, card.Semester}
}

// fakeStore stages transaction writes and only commits them when the
// transaction function succeeds.
type fakeStore struct {
	cards        map[cardKey]ReportCard
	nextID       int64
	txCount      int
	failOnWrite  int
	// finalizeInTx marks students finalized by a concurrent request between
	// the pre-check and the upsert.
	finalizeInTx map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{cards: map[cardKey]ReportCard{}, nextID: 1}
}

func (s *fakeStore) FinalStudentIDs(_ context.Context, classroomID, academicYearID int64, semester int, ids []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range ids {
		if card, ok := s.cards[cardKey{id, classroomID, academicYearID, semester}]; ok && card.Status == StatusFinal {
			out[id] = true
		}
	}
	return out, nil
}

type fakeTx struct {
	store  *fakeStore
	staged map[cardKey]ReportCard
	nextID int64
	writes int
}

func (tx *fakeTx) Upsert(_ context.Context, card ReportCard) (int64, bool, error) {
	tx.writes++
	if tx.store.failOnWrite > 0 && tx.writes == tx.store.failOnWrite {
		return 0, false, errDiskFull
	}
	key := keyOf(card)
	existing, ok := tx.staged[key]
	if tx.store.finalizeInTx[card.StudentID] {
		existing.Status = StatusFinal
		ok = true
	}
	if ok && existing.Status == StatusFinal {
		return 0, false, nil
	}
	if ok {
		card.ID = existing.ID
	} else {
		card.ID = tx.nextID
		tx.nextID++
	}
	card.Status = StatusDraft
	card.GeneratedAt = generatedAt
	tx.staged[key] = card
	return card.ID, true, nil
}

func (s *fakeStore) WithTx(_ context.Context, fn func(w Writer) error) error {
	s.txCount++
	tx := &fakeTx{store: s, staged: map[cardKey]ReportCard{}, nextID: s.nextID}
	for k, v := range s.cards {
		tx.staged[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.cards = tx.staged
	s.nextID = tx.nextID
	return nil
}

func (s *fakeStore) List(_ context.Context, filter ListFilter) ([]ReportCard, error) {
	scope := map[int64]bool{}
	for _, id := range filter.ClassroomIDs {
		scope[id] = true
	}
	var out []ReportCard
	for _, card := range s.cards {
		if filter.ClassroomID != 0 && card.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.Status != "" && card.Status != filter.Status {
			continue
		}
		if filter.ClassroomIDs != nil && !scope[card.ClassroomID] {
			continue
		}
		out = append(out, card)
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (ReportCard, error) {
	for _, card := range s.cards {
		if card.ID == id {
			return card, nil
		}
	}
	return ReportCard{}, ErrReportCardNotFound
}

func (s *fakeStore) Finalize(ctx context.Context, id int64) (ReportCard, error) {
	card, err := s.Get(ctx, id)
	if err != nil {
		return ReportCard{}, err
	}
	if card.Status == StatusFinal {
		return ReportCard{}, ErrAlreadyFinal
	}
	card.Status = StatusFinal
	finalized := generatedAt.Add(time.Hour)
	card.FinalizedAt = &finalized
	s.cards[keyOf(card)] = card
	return card, nil
}

func (s *fakeStore) card(studentID, classroomID int64) (ReportCard, bool) {
	card, ok := s.cards[cardKey{studentID, classroomID, yearID, 1}]
	return card, ok
}

type countingMetrics struct {
	generated, skipped, finalized, rendered int
}

func (m *countingMetrics) ReportCards(generated, skipped int) {
	m.generated += generated
	m.skipped += skipped
}

func (m *countingMetrics) ReportCardFinalized() { m.finalized++ }
func (m *countingMetrics) DocumentRendered() { m.rendered++ }

func adminCaps() auth.Capabilities {
	return auth.NewCapabilities(auth.UserContext{UserID: 1, RoleName: auth.RoleAdmin}, 0, auth.RolePermissions[auth.RoleAdmin], nil)
}

func teacherCaps(assignments ...auth.Assignment) auth.Capabilities {
	return auth.NewCapabilities(auth.UserContext{UserID: 2, RoleName: auth.RoleTeacher}, 9, auth.RolePermissions[auth.RoleTeacher], assignments)
}

func principalCaps() auth.Capabilities {
	return auth.NewCapabilities(auth.UserContext{UserID: 3, RoleName: auth.RolePrincipal}, 0, auth.RolePermissions[auth.RolePrincipal], nil)
}

func ptr[T any](v T) *T { return &v }

// exampleInputs is the single-student scenario of Kelas 1A.
func exampleInputs() *fakeInputs {
	return &fakeInputs{
		grades: []assessment.GradeRecord{
			{StudentID: studentAna, SubjectID: subjectBI, Grade: ptr(88.0), BestTPID: ptr(tpRead)},
		},
		extracurricular: []assessment.LevelRecord{
			{StudentID: studentAna, ItemID: activityPr, Level: "Baik"},
		},
		attendance: []assessment.AttendanceRecord{
			{StudentID: studentAna, Sick: 2, Permission: 1, Absent: 0},
		},
	}
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	inputs   *fakeInputs
	academic *fakeAcademic
	metrics  *countingMetrics
}

func newFixture(inputs *fakeInputs) *fixture {
	f := &fixture{
		store:    newFakeStore(),
		inputs:   inputs,
		academic: &fakeAcademic{},
		metrics:  &countingMetrics{},
	}
	f.svc = NewService(Deps{
		Store:      f.store,
		Inputs:     f.inputs,
		Academic:   f.academic,
		Metrics:    f.metrics,
		SchoolName: "PKBM Harapan Bangsa",
	})
	return f
}

func exampleRequest(ids ...int64) GenerateRequest {
	return GenerateRequest{ClassroomID: class1A, AcademicYearID: yearID, Semester: 1, StudentIDs: ids}
}
