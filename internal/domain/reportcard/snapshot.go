package reportcard

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the typed, versioned aggregate persisted in report_cards.snapshot.
// Exactly one of SubjectGrades and PAUD is serialised, chosen by Track.
type Snapshot struct {
	Version         int
	Track           string
	Phase           string
	SubjectGrades   []SubjectGradeLine
	PAUD            []DevelopmentalLine
	P5              []P5Line
	Extracurricular []ExtracurricularLine
	Attendance      Attendance
	Notes           Notes
}

type SubjectGradeLine struct {
	SubjectID     int64    `json:"subject_id"`
	SubjectName   string   `json:"subject_name"`
	Grade         *float64 `json:"grade"`
	BestTP        []string `json:"best_tp"`
	ImprovementTP []string `json:"improvement_tp"`
	Description   string   `json:"description"`
}

type DevelopmentalLine struct {
	AspectType  string `json:"aspect_type"`
	AspectName  string `json:"aspect_name"`
	Description string `json:"description"`
}

type ExtracurricularLine struct {
	Name        string `json:"name"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

type P5Line struct {
	Theme       string `json:"theme"`
	Name        string `json:"name"`
	Level       string `json:"level"`
	Description string `json:"description"`
}

type Attendance struct {
	Sick       int `json:"sick"`
	Permission int `json:"permission"`
	Absent     int `json:"absent"`
}

type Notes struct {
	Teacher   string `json:"teacher"`
	Character string `json:"character"`
}

type snapshotJSON struct {
	Version         int                   `json:"version"`
	Track           string                `json:"track"`
	Phase           string                `json:"phase,omitempty"`
	SubjectGrades   *[]SubjectGradeLine   `json:"subject_grades,omitempty"`
	PAUD            *[]DevelopmentalLine  `json:"paud,omitempty"`
	P5              []P5Line              `json:"p5"`
	Extracurricular []ExtracurricularLine `json:"extracurricular"`
	Attendance      Attendance            `json:"attendance"`
	Notes           Notes                 `json:"notes"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		Version:         s.Version,
		Track:           s.Track,
		Phase:           s.Phase,
		P5:              nonNil(s.P5),
		Extracurricular: nonNil(s.Extracurricular),
		Attendance:      s.Attendance,
		Notes:           s.Notes,
	}
	if s.Track == TrackPAUD {
		lines := nonNil(s.PAUD)
		out.PAUD = &lines
	} else {
		lines := make([]SubjectGradeLine, 0, len(s.SubjectGrades))
		for _, line := range s.SubjectGrades {
			line.BestTP = nonNil(line.BestTP)
			line.ImprovementTP = nonNil(line.ImprovementTP)
			lines = append(lines, line)
		}
		out.SubjectGrades = &lines
	}
	return json.Marshal(out)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var in snapshotJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Version > SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, in.Version)
	}
	*s = Snapshot{
		Version:         in.Version,
		Track:           in.Track,
		Phase:           in.Phase,
		P5:              in.P5,
		Extracurricular: in.Extracurricular,
		Attendance:      in.Attendance,
		Notes:           in.Notes,
	}
	if in.SubjectGrades != nil {
		s.SubjectGrades = *in.SubjectGrades
	}
	if in.PAUD != nil {
		s.PAUD = *in.PAUD
	}
	if s.Track == "" {
		s.Track = TrackGraded
		if in.PAUD != nil {
			s.Track = TrackPAUD
		}
	}
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
