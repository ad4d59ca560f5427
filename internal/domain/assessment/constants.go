package assessment

const (
	KindGrades          = "grades"
	KindDevelopmental   = "developmental"
	KindExtracurricular = "extracurricular"
	KindP5              = "p5"
	KindAttendance      = "attendance"
	KindNotes           = "notes"
)

var Kinds = []string{KindGrades, KindDevelopmental, KindExtracurricular, KindP5, KindAttendance, KindNotes}

// Extracurricular achievement levels.
const (
	LevelVeryGood = "Sangat Baik"
	LevelGood     = "Baik"
	LevelFair     = "Cukup"
	LevelPoor     = "Kurang"
)

// P5 achievement levels: Mulai Berkembang, Sedang Berkembang, Berkembang
// Sesuai Harapan, Sangat Berkembang.
const (
	P5Emerging   = "MB"
	P5Developing = "SB"
	P5Expected   = "BSH"
	P5Exceeding  = "SAB"
)

const (
	DefaultExtracurricularLevel = LevelGood
	DefaultP5Level              = P5Expected

	MinGrade = 0
	MaxGrade = 100
)

var ExtracurricularLevels = []string{LevelVeryGood, LevelGood, LevelFair, LevelPoor}

var P5Levels = []string{P5Emerging, P5Developing, P5Expected, P5Exceeding}

func ValidKind(kind string) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
