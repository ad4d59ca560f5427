package academic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkbm/internal/platform/events"
)

type fakeStore struct {
	StoreAPI

	classrooms     map[int64]Classroom
	levels         map[int64]Level
	objectives     []LearningObjective
	classroomLoads int
	objectiveLoads int
	created        []LearningObjective
}

func newFakeStore() *fakeStore {
	level := Level{ID: 1, Name: "Kelas 1", Grade: 1}
	upper := Level{ID: 5, Name: "Kelas 5", Grade: 5}
	return &fakeStore{
		classrooms: map[int64]Classroom{
			10: {ID: 10, Name: "Kelas 1A", AcademicYearID: 1, Level: level},
			50: {ID: 50, Name: "Kelas 5A", AcademicYearID: 1, Level: upper},
		},
		levels: map[int64]Level{1: level, 5: upper},
		objectives: []LearningObjective{
			{ID: 100, SubjectID: 5, Phase: PhaseA, Code: "BI-A1", Description: "Dapat membaca kalimat sederhana"},
			{ID: 101, SubjectID: 5, Phase: PhaseC, Code: "BI-C1", Description: "Dapat menulis paragraf"},
		},
	}
}

func (f *fakeStore) GetClassroom(_ context.Context, id int64) (Classroom, error) {
	f.classroomLoads++
	c, ok := f.classrooms[id]
	if !ok {
		return Classroom{}, ErrClassroomNotFound
	}
	c.Level = f.levels[c.Level.ID]
	return c, nil
}

func (f *fakeStore) ObjectivesBySubject(_ context.Context, subjectID int64) ([]LearningObjective, error) {
	f.objectiveLoads++
	var out []LearningObjective
	for _, obj := range f.objectives {
		if obj.SubjectID == subjectID {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeStore) ObjectivesByIDs(_ context.Context, ids []int64) ([]LearningObjective, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []LearningObjective
	for _, obj := range f.objectives {
		if want[obj.ID] {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateObjective(_ context.Context, obj LearningObjective) (int64, error) {
	obj.ID = int64(200 + len(f.created))
	f.created = append(f.created, obj)
	f.objectives = append(f.objectives, obj)
	return obj.ID, nil
}

func (f *fakeStore) SetLevelPhase(_ context.Context, levelID int64, phase string) error {
	l, ok := f.levels[levelID]
	if !ok {
		return ErrLevelNotFound
	}
	l.Phase = phase
	f.levels[levelID] = l
	return nil
}

func (f *fakeStore) GetLevel(_ context.Context, id int64) (Level, error) {
	l, ok := f.levels[id]
	if !ok {
		return Level{}, ErrLevelNotFound
	}
	return l, nil
}

func TestEligibleObjectivesFiltersByClassroomPhase(t *testing.T) {
	svc := NewService(newFakeStore(), events.NewBus(), Options{})

	objs, err := svc.EligibleObjectives(context.Background(), 10, 5, nil)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "Dapat membaca kalimat sederhana", objs[0].Description)

	objs, err = svc.EligibleObjectives(context.Background(), 10, 5, map[int64]bool{101: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101}, objectiveIDs(objs))
}

func TestObjectivesCachedUntilChanged(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, events.NewBus(), Options{})
	ctx := context.Background()

	_, err := svc.Objectives(ctx, 5)
	require.NoError(t, err)
	_, err = svc.Objectives(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, store.objectiveLoads)

	created, err := svc.CreateObjective(ctx, LearningObjective{SubjectID: 5, Phase: "a", Code: " BI-A2 ", Description: "Dapat menyimak cerita"})
	require.NoError(t, err)
	assert.Equal(t, PhaseA, created.Phase)
	assert.Equal(t, "BI-A2", created.Code)

	objs, err := svc.Objectives(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, store.objectiveLoads)
	assert.Len(t, objs, 3)
}

func TestCreateObjectiveRejectsUnknownPhase(t *testing.T) {
	svc := NewService(newFakeStore(), nil, Options{})
	_, err := svc.CreateObjective(context.Background(), LearningObjective{SubjectID: 5, Phase: "Q", Code: "X"})
	assert.ErrorIs(t, err, ErrInvalidPhase)
}

func TestSetLevelPhaseInvalidatesClassrooms(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, events.NewBus(), Options{})
	ctx := context.Background()

	_, phase, ok, err := svc.ClassroomPhase(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseA, phase)
	_, phase, _, err = svc.ClassroomPhase(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, PhaseC, phase)

	level, err := svc.SetLevelPhase(ctx, 1, "b")
	require.NoError(t, err)
	assert.Equal(t, PhaseB, level.Phase)

	_, phase, ok, err = svc.ClassroomPhase(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PhaseB, phase)

	// Kelas 5A sits on another level and stays cached.
	_, _, _, err = svc.ClassroomPhase(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, store.classroomLoads)
}

func TestClassroomNotFound(t *testing.T) {
	svc := NewService(newFakeStore(), nil, Options{})
	_, _, _, err := svc.ClassroomPhase(context.Background(), 99)
	assert.ErrorIs(t, err, ErrClassroomNotFound)
}

func TestObjectivesByIDsIgnoresPhase(t *testing.T) {
	svc := NewService(newFakeStore(), nil, Options{})
	got, err := svc.ObjectivesByIDs(context.Background(), []int64{101})
	require.NoError(t, err)
	assert.Equal(t, "Dapat menulis paragraf", got[101].Description)
}

func TestListClassroomsEmptyScope(t *testing.T) {
	svc := NewService(newFakeStore(), nil, Options{})
	got, err := svc.ListClassrooms(context.Background(), 1, []int64{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
