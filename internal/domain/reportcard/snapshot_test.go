package reportcard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotJSONGradedShape(t *testing.T) {
	snap := Snapshot{
		Version: SnapshotVersion,
		Track:   TrackGraded,
		Phase:   "A",
		SubjectGrades: []SubjectGradeLine{
			{SubjectID: 5, SubjectName: "Bahasa Indonesia", Grade: ptr(88.0), BestTP: []string{"Dapat membaca kalimat sederhana"}},
		},
		Attendance: Attendance{Sick: 2, Permission: 1},
	}

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 1,
		"track": "graded",
		"phase": "A",
		"subject_grades": [{
			"subject_id": 5,
			"subject_name": "Bahasa Indonesia",
			"grade": 88,
			"best_tp": ["Dapat membaca kalimat sederhana"],
			"improvement_tp": [],
			"description": ""
		}],
		"p5": [],
		"extracurricular": [],
		"attendance": {"sick": 2, "permission": 1, "absent": 0},
		"notes": {"teacher": "", "character": ""}
	}`, string(raw))
}

func TestSnapshotJSONPAUDShape(t *testing.T) {
	snap := Snapshot{Version: SnapshotVersion, Track: TrackPAUD, SubjectGrades: []SubjectGradeLine{{SubjectName: "ignored"}}}

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &keys))
	assert.JSONEq(t, `[]`, string(keys["paud"]))
	assert.NotContains(t, keys, "subject_grades")
	assert.NotContains(t, keys, "phase")
}

func TestSnapshotRoundTripKeepsNullGrade(t *testing.T) {
	in := Snapshot{
		Version:       SnapshotVersion,
		Track:         TrackGraded,
		SubjectGrades: []SubjectGradeLine{{SubjectID: 6, SubjectName: "Matematika"}},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Snapshot
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.SubjectGrades, 1)
	assert.Nil(t, out.SubjectGrades[0].Grade)
	assert.Equal(t, []string{}, out.SubjectGrades[0].BestTP)
}

func TestSnapshotUnmarshalInfersTrack(t *testing.T) {
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"version":1,"paud":[{"aspect_name":"Motorik halus","description":"Mampu"}],"attendance":{"sick":1,"permission":0,"absent":0}}`), &snap))
	assert.Equal(t, TrackPAUD, snap.Track)
	assert.Equal(t, "Motorik halus", snap.PAUD[0].AspectName)
	assert.Equal(t, 1, snap.Attendance.Sick)

	require.NoError(t, json.Unmarshal([]byte(`{"version":1,"subject_grades":[]}`), &snap))
	assert.Equal(t, TrackGraded, snap.Track)
	assert.Nil(t, snap.PAUD)
}

func TestSnapshotRejectsNewerVersion(t *testing.T) {
	var snap Snapshot
	err := json.Unmarshal([]byte(`{"version":2,"track":"graded"}`), &snap)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
