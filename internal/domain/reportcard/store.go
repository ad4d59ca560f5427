package reportcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pkbm/internal/platform/db"
	"pkbm/internal/platform/querier"
)

type Store struct {
	DB   querier.Querier
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool, pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(w Writer) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{DB: tx})
	})
}

func (s *Store) FinalStudentIDs(ctx context.Context, classroomID, academicYearID int64, semester int, studentIDs []int64) (map[int64]bool, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT student_id
    FROM report_cards
    WHERE classroom_id = $1 AND academic_year_id = $2 AND semester = $3
      AND status = $4 AND student_id = ANY($5)
  `, classroomID, academicYearID, semester, StatusFinal, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, card ReportCard) (int64, bool, error) {
	payload, err := json.Marshal(card.Snapshot)
	if err != nil {
		return 0, false, err
	}
	var id int64
	err = s.DB.QueryRow(ctx, `
    INSERT INTO report_cards (student_id, classroom_id, academic_year_id, semester, snapshot, snapshot_version,
                              teacher_note, character_note, status, generated_by, generated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10::bigint, 0),now())
    ON CONFLICT (student_id, classroom_id, academic_year_id, semester)
    DO UPDATE SET snapshot = EXCLUDED.snapshot,
                  snapshot_version = EXCLUDED.snapshot_version,
                  teacher_note = EXCLUDED.teacher_note,
                  character_note = EXCLUDED.character_note,
                  generated_by = EXCLUDED.generated_by,
                  generated_at = now()
    WHERE report_cards.status = 'draft'
    RETURNING id
  `, card.StudentID, card.ClassroomID, card.AcademicYearID, card.Semester, payload, card.SnapshotVersion,
		card.TeacherNote, card.CharacterNote, StatusDraft, card.GeneratedBy).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

const cardSelect = `
    SELECT rc.id, rc.student_id, st.name, rc.classroom_id, c.name, rc.academic_year_id, ay.name,
           rc.semester, rc.snapshot, rc.snapshot_version, rc.teacher_note, rc.character_note,
           rc.status, COALESCE(rc.generated_by, 0), rc.generated_at, rc.finalized_at
    FROM report_cards rc
    JOIN students st ON st.id = rc.student_id
    JOIN classrooms c ON c.id = rc.classroom_id
    JOIN academic_years ay ON ay.id = rc.academic_year_id
`

func scanCard(row pgx.Row) (ReportCard, error) {
	var card ReportCard
	var payload []byte
	err := row.Scan(&card.ID, &card.StudentID, &card.StudentName, &card.ClassroomID, &card.ClassroomName,
		&card.AcademicYearID, &card.AcademicYearName, &card.Semester, &payload, &card.SnapshotVersion,
		&card.TeacherNote, &card.CharacterNote, &card.Status, &card.GeneratedBy, &card.GeneratedAt, &card.FinalizedAt)
	if err != nil {
		return ReportCard{}, err
	}
	if err := json.Unmarshal(payload, &card.Snapshot); err != nil {
		return ReportCard{}, fmt.Errorf("report card %d: %w", card.ID, err)
	}
	return card, nil
}

func (s *Store) List(ctx context.Context, filter ListFilter) ([]ReportCard, error) {
	var scope []int64
	if filter.ClassroomIDs != nil {
		scope = append([]int64{}, filter.ClassroomIDs...)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.Query(ctx, cardSelect+`
    WHERE ($1::bigint = 0 OR rc.classroom_id = $1)
      AND ($2::bigint = 0 OR rc.academic_year_id = $2)
      AND ($3::int = 0 OR rc.semester = $3)
      AND ($4::text = '' OR rc.status = $4)
      AND ($5::bigint[] IS NULL OR rc.classroom_id = ANY($5))
    ORDER BY c.name, st.name
    LIMIT $6 OFFSET $7
  `, filter.ClassroomID, filter.AcademicYearID, filter.Semester, filter.Status, scope, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (ReportCard, error) {
	card, err := scanCard(s.DB.QueryRow(ctx, cardSelect+" WHERE rc.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ReportCard{}, ErrReportCardNotFound
	}
	return card, err
}

func (s *Store) Finalize(ctx context.Context, id int64) (ReportCard, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE report_cards
    SET status = $2, finalized_at = now()
    WHERE id = $1 AND status = $3
  `, id, StatusFinal, StatusDraft)
	if err != nil {
		return ReportCard{}, err
	}
	if tag.RowsAffected() == 0 {
		card, err := s.Get(ctx, id)
		if err != nil {
			return ReportCard{}, err
		}
		if card.Status == StatusFinal {
			return ReportCard{}, ErrAlreadyFinal
		}
		return ReportCard{}, ErrReportCardNotFound
	}
	return s.Get(ctx, id)
}
