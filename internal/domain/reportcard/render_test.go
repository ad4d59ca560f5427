package reportcard

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkbm/internal/domain/academic"
)

func exampleRenderInput() RenderInput {
	return RenderInput{
		SchoolName: "PKBM Harapan Bangsa",
		Card: ReportCard{
			ID:               1,
			StudentID:        studentAna,
			StudentName:      "ANA putri",
			ClassroomID:      class1A,
			ClassroomName:    "Kelas 1A",
			AcademicYearID:   yearID,
			AcademicYearName: "2024/2025",
			Semester:         1,
			Status:           StatusDraft,
			GeneratedAt:      generatedAt,
			Snapshot: Snapshot{
				Version: SnapshotVersion,
				Track:   TrackGraded,
				Phase:   "A",
				SubjectGrades: []SubjectGradeLine{{
					SubjectID:   subjectBI,
					SubjectName: "Bahasa Indonesia",
					Grade:       ptr(88.0),
					BestTP:      []string{"Dapat membaca kalimat sederhana"},
					Description: Describe([]string{"Dapat membaca kalimat sederhana"}, nil),
				}},
				Extracurricular: []ExtracurricularLine{{Name: "Pramuka", Level: "Baik"}},
				Attendance:      Attendance{Sick: 2, Permission: 1},
				Notes:           Notes{Teacher: "Pertahankan semangat belajar, Ananda."},
			},
		},
		Student:   academic.Student{ID: studentAna, Name: "ANA putri", NIS: "2401", NISN: "0012345678"},
		Classroom: academic.Classroom{ID: class1A, Name: "Kelas 1A", HomeroomTeacherName: "siti rahmawati", HomeroomTeacherNIP: "198001012005012001"},
	}
}

func testPhoto(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 16))
	for x := 0; x < 12; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: 120, B: uint8(y * 15), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(exampleRenderInput())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "%%EOF")
}

func TestRenderIsDeterministic(t *testing.T) {
	in := exampleRenderInput()
	in.Photo = testPhoto(t)

	first, err := Render(in)
	require.NoError(t, err)
	second, err := Render(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderEmbedsPhoto(t *testing.T) {
	without, err := Render(exampleRenderInput())
	require.NoError(t, err)

	in := exampleRenderInput()
	in.Photo = testPhoto(t)
	with, err := Render(in)
	require.NoError(t, err)
	assert.Contains(t, string(with), "/Subtype /Image")
	assert.NotContains(t, string(without), "/Subtype /Image")
}

func TestRenderIgnoresUnreadablePhoto(t *testing.T) {
	in := exampleRenderInput()
	in.Photo = []byte("not an image")
	out, err := Render(in)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "/Subtype /Image")
}

func TestRenderPAUDAndFinal(t *testing.T) {
	in := exampleRenderInput()
	in.Card.Status = StatusFinal
	in.Card.Snapshot = Snapshot{
		Version: SnapshotVersion,
		Track:   TrackPAUD,
		PAUD: []DevelopmentalLine{
			{AspectType: "Fisik Motorik", AspectName: "Motorik halus", Description: "Mampu menggunting pola dengan rapi"},
			{AspectType: "Fisik Motorik", AspectName: "Motorik kasar"},
		},
	}
	out, err := Render(in)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRenderLongTablesSpanPages(t *testing.T) {
	in := exampleRenderInput()
	line := in.Card.Snapshot.SubjectGrades[0]
	line.Description = Describe(
		[]string{"Dapat membaca kalimat sederhana dengan lafal dan intonasi yang tepat serta memahami isi bacaan"},
		[]string{"Menulis kalimat sederhana dengan huruf kapital dan tanda baca yang benar"},
	)
	for i := 0; i < 40; i++ {
		in.Card.Snapshot.SubjectGrades = append(in.Card.Snapshot.SubjectGrades, line)
	}
	out, err := Render(in)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, strings.Count(string(out), "/Type /Page\n"), 2)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name        string
		best        []string
		improvement []string
		want        string
	}{
		{name: "none", want: ""},
		{name: "best only", best: []string{"Dapat membaca kalimat sederhana"}, want: "Menunjukkan penguasaan yang baik dalam dapat membaca kalimat sederhana."},
		{name: "improvement only", improvement: []string{"Menulis huruf kapital."}, want: "Perlu bantuan dalam menulis huruf kapital."},
		{
			name:        "both",
			best:        []string{"Membilang 1-20", "Mengenal bentuk"},
			improvement: []string{"Operasi penjumlahan"},
			want:        "Menunjukkan penguasaan yang baik dalam membilang 1-20, mengenal bentuk. Perlu bantuan dalam operasi penjumlahan.",
		},
		{name: "blank entries", best: []string{"  "}, want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Describe(tc.best, tc.improvement))
		})
	}
}
