package reportcard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"pkbm/internal/domain/auth"
	"pkbm/internal/platform/crypto"
	"pkbm/internal/platform/storage"
)

// Documents connects rendering to the media sink. Media supplies student
// photos; finalized cards are archived there too when Archive is set. A zero
// Documents renders without photos and archives nothing.
type Documents struct {
	Media   *storage.Disk
	Sealer  *crypto.Sealer
	Archive bool
}

type Document struct {
	FileName string
	Content  []byte
	Card     ReportCard
	// Archived is set when Content came from the archive of a final card.
	Archived bool
}

func archivePath(card ReportCard) string {
	return fmt.Sprintf("report-cards/%d/%d/%d/%d.pdf", card.AcademicYearID, card.Semester, card.ClassroomID, card.StudentID)
}

func fileName(card ReportCard) string {
	return fmt.Sprintf("rapor-%d-%d-semester-%d.pdf", card.StudentID, card.AcademicYearID, card.Semester)
}

func (d *Documents) photo(path string) []byte {
	if d.Media == nil || path == "" {
		return nil
	}
	data, err := d.Media.Read(path)
	if err != nil {
		slog.Warn("student photo unavailable", "path", path, "err", err)
		return nil
	}
	return data
}

func (d *Documents) archiving() bool {
	return d.Archive && d.Media != nil
}

func (d *Documents) store(card ReportCard, pdf []byte) error {
	rel := archivePath(card)
	sealed, err := d.Sealer.Seal(pdf, rel)
	if err != nil {
		return err
	}
	return d.Media.WriteFile(rel, sealed, 0o600)
}

// archived returns the stored copy of card, or nil when none exists.
func (d *Documents) archived(card ReportCard) ([]byte, error) {
	rel := archivePath(card)
	sealed, err := d.Media.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d.Sealer.Open(sealed, rel)
}

// Document renders the report card with id. Final cards are served from the
// archive when a copy exists and archived on first render otherwise.
func (s *Service) Document(ctx context.Context, caps auth.Capabilities, id int64) (Document, error) {
	card, err := s.Get(ctx, caps, id)
	if err != nil {
		return Document{}, err
	}
	doc := Document{FileName: fileName(card), Card: card}

	final := card.Status == StatusFinal && s.documents.archiving()
	if final {
		content, err := s.documents.archived(card)
		if err != nil {
			slog.Warn("report card archive unreadable", "report_card_id", card.ID, "err", err)
		} else if content != nil {
			doc.Content = content
			doc.Archived = true
			return doc, nil
		}
	}

	student, err := s.academic.Student(ctx, card.StudentID)
	if err != nil {
		return Document{}, err
	}
	classroom, err := s.academic.Classroom(ctx, card.ClassroomID)
	if err != nil {
		return Document{}, err
	}
	content, err := Render(RenderInput{
		SchoolName: s.schoolName,
		Card:       card,
		Student:    student,
		Classroom:  classroom,
		Photo:      s.documents.photo(student.PhotoPath),
	})
	if err != nil {
		return Document{}, err
	}
	s.metrics.DocumentRendered()

	if final {
		if err := s.documents.store(card, content); err != nil {
			slog.Warn("report card archive failed", "report_card_id", card.ID, "err", err)
		}
	}
	doc.Content = content
	return doc, nil
}
