package reportcard

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pkbm/internal/domain/academic"
	"pkbm/internal/platform/storage"
)

// RenderInput is everything printed on one report card. Rendering reads
// nothing else, so the same input always yields the same document.
type RenderInput struct {
	SchoolName string
	Card       ReportCard
	Student    academic.Student
	Classroom  academic.Classroom
	// Photo is the raw student photo; PNG and JPEG are printed, anything else
	// is left out.
	Photo []byte
}

const (
	lineHeight = 5.0
	margin     = 15.0
	photoW     = 30.0
	photoH     = 40.0
)

type renderer struct {
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	title cases.Caser
	width float64
}

// Render lays out an A4 report card.
func Render(in RenderInput) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(in.Card.GeneratedAt)
	pdf.SetModificationDate(in.Card.GeneratedAt)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("{nb}")

	pageW, _ := pdf.GetPageSize()
	r := &renderer{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		title: cases.Title(language.Indonesian),
		width: pageW - 2*margin,
	}
	pdf.SetTitle("Rapor "+r.name(in.Card.StudentName), true)
	pdf.SetCreator(in.SchoolName, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin + 5)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Halaman %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	r.header(in)
	r.identity(in)
	snap := in.Card.Snapshot
	if snap.Track == TrackPAUD {
		r.paud(snap.PAUD)
	} else {
		r.grades(snap.SubjectGrades)
	}
	r.p5(snap.P5)
	r.extracurricular(snap.Extracurricular)
	r.attendance(snap.Attendance)
	r.notes(snap.Notes)
	r.signatures(in)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report card %d: %w", in.Card.ID, err)
	}
	return buf.Bytes(), nil
}

func (r *renderer) name(s string) string {
	return r.title.String(strings.ToLower(strings.TrimSpace(s)))
}

func (r *renderer) header(in RenderInput) {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 7, r.tr("LAPORAN HASIL BELAJAR"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, r.tr(strings.ToUpper(in.SchoolName)), "", 1, "C", false, 0, "")
	if in.Card.Status != StatusFinal {
		pdf.SetTextColor(200, 30, 30)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 5, "DRAFT", "", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(2)
	y := pdf.GetY()
	pdf.SetLineWidth(0.6)
	pdf.Line(margin, y, margin+r.width, y)
	pdf.SetLineWidth(0.2)
	pdf.Ln(4)
}

func (r *renderer) identity(in RenderInput) {
	pdf := r.pdf
	top := pdf.GetY()
	phase := in.Card.Snapshot.Phase
	if phase == "" {
		phase = "-"
	}
	rows := [][2]string{
		{"Nama Peserta Didik", r.name(in.Card.StudentName)},
		{"NIS / NISN", orDash(in.Student.NIS) + " / " + orDash(in.Student.NISN)},
		{"Kelas", in.Card.ClassroomName},
		{"Fase", phase},
		{"Tahun Pelajaran", in.Card.AcademicYearName},
		{"Semester", semesterLabel(in.Card.Semester)},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(45, 6, r.tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(4, 6, ":", "", 0, "L", false, 0, "")
		pdf.CellFormat(r.width-photoW-55, 6, r.tr(row[1]), "", 1, "L", false, 0, "")
	}
	bottom := pdf.GetY()

	if r.photo(in.Photo, margin+r.width-photoW, top) && top+photoH > bottom {
		bottom = top + photoH
	}
	pdf.SetY(bottom + 4)
}

// photo prints the student photo at x, y and reports whether it did.
func (r *renderer) photo(data []byte, x, y float64) bool {
	if len(data) == 0 {
		return false
	}
	var imageType string
	switch storage.DetectType(data) {
	case "image/png":
		imageType = "PNG"
	case "image/jpeg":
		imageType = "JPG"
	default:
		return false
	}
	opts := gofpdf.ImageOptions{ImageType: imageType}
	info := r.pdf.RegisterImageOptionsReader("student-photo", opts, bytes.NewReader(data))
	if info == nil || !r.pdf.Ok() {
		r.pdf.ClearError()
		return false
	}
	r.pdf.ImageOptions("student-photo", x, y, photoW, photoH, false, opts, 0, "")
	return true
}

func (r *renderer) section(title string) {
	pdf := r.pdf
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, r.tr(title), "", 1, "L", false, 0, "")
}

func (r *renderer) tableHead(widths []float64, titles []string) {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(225, 232, 240)
	for i, t := range titles {
		pdf.CellFormat(widths[i], 7, r.tr(t), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
}

// row draws one table row whose height fits the tallest wrapped cell.
func (r *renderer) row(widths []float64, cells []string, aligns []string) {
	pdf := r.pdf
	lines := 1
	for i, c := range cells {
		if n := len(pdf.SplitLines([]byte(r.tr(c)), widths[i]-2)); n > lines {
			lines = n
		}
	}
	h := float64(lines) * lineHeight
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+h > pageH-margin {
		pdf.AddPage()
	}
	x, y := margin, pdf.GetY()
	for i, c := range cells {
		pdf.Rect(x, y, widths[i], h, "D")
		pdf.SetXY(x, y)
		pdf.MultiCell(widths[i], lineHeight, r.tr(c), "", aligns[i], false)
		x += widths[i]
	}
	pdf.SetXY(margin, y+h)
}

func (r *renderer) empty(text string) {
	r.pdf.SetFont("Helvetica", "I", 9)
	r.pdf.CellFormat(r.width, 7, r.tr(text), "1", 1, "C", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 9)
}

func (r *renderer) grades(lines []SubjectGradeLine) {
	r.section("A. Nilai Akademik")
	widths := []float64{10, 50, 18, r.width - 78}
	r.tableHead(widths, []string{"No", "Mata Pelajaran", "Nilai", "Capaian Kompetensi"})
	if len(lines) == 0 {
		r.empty("Belum ada nilai")
		return
	}
	for i, line := range lines {
		r.row(widths,
			[]string{strconv.Itoa(i + 1), line.SubjectName, formatGrade(line.Grade), line.Description},
			[]string{"C", "L", "C", "L"})
	}
}

func (r *renderer) paud(lines []DevelopmentalLine) {
	r.section("A. Perkembangan Anak")
	widths := []float64{45, 45, r.width - 90}
	r.tableHead(widths, []string{"Aspek", "Lingkup Perkembangan", "Deskripsi"})
	if len(lines) == 0 {
		r.empty("Belum ada deskripsi perkembangan")
		return
	}
	prevType := ""
	for _, line := range lines {
		aspectType := line.AspectType
		if aspectType == prevType {
			aspectType = ""
		}
		prevType = line.AspectType
		r.row(widths, []string{aspectType, line.AspectName, orDash(line.Description)}, []string{"L", "L", "L"})
	}
}

func (r *renderer) p5(lines []P5Line) {
	r.section("B. Projek Penguatan Profil Pelajar Pancasila")
	widths := []float64{50, 50, 18, r.width - 118}
	r.tableHead(widths, []string{"Tema", "Projek", "Capaian", "Catatan"})
	if len(lines) == 0 {
		r.empty("-")
		return
	}
	for _, line := range lines {
		r.row(widths, []string{line.Theme, line.Name, line.Level, line.Description}, []string{"L", "L", "C", "L"})
	}
}

func (r *renderer) extracurricular(lines []ExtracurricularLine) {
	r.section("C. Ekstrakurikuler")
	widths := []float64{10, 55, 30, r.width - 95}
	r.tableHead(widths, []string{"No", "Kegiatan", "Predikat", "Keterangan"})
	if len(lines) == 0 {
		r.empty("-")
		return
	}
	for i, line := range lines {
		r.row(widths, []string{strconv.Itoa(i + 1), line.Name, line.Level, line.Description}, []string{"C", "L", "C", "L"})
	}
}

func (r *renderer) attendance(a Attendance) {
	r.section("D. Ketidakhadiran")
	widths := []float64{60, 30}
	for _, item := range []struct {
		label string
		days  int
	}{
		{"Sakit", a.Sick},
		{"Izin", a.Permission},
		{"Tanpa Keterangan", a.Absent},
	} {
		r.row(widths, []string{item.label, fmt.Sprintf("%d hari", item.days)}, []string{"L", "C"})
	}
}

func (r *renderer) notes(n Notes) {
	r.section("E. Catatan Wali Kelas")
	r.row([]float64{r.width}, []string{orDash(n.Teacher)}, []string{"L"})
	r.section("F. Catatan Karakter")
	r.row([]float64{r.width}, []string{orDash(n.Character)}, []string{"L"})
}

func (r *renderer) signatures(in RenderInput) {
	pdf := r.pdf
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+45 > pageH-margin {
		pdf.AddPage()
	}
	pdf.Ln(8)
	half := r.width / 2
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(half, 5, r.tr("Orang Tua/Wali"), "", 0, "C", false, 0, "")
	pdf.CellFormat(half, 5, r.tr("Wali Kelas"), "", 1, "C", false, 0, "")
	pdf.Ln(22)
	teacher := r.name(in.Classroom.HomeroomTeacherName)
	if teacher == "" {
		teacher = "...................................."
	}
	pdf.CellFormat(half, 5, "....................................", "", 0, "C", false, 0, "")
	pdf.SetFont("Helvetica", "BU", 10)
	pdf.CellFormat(half, 5, r.tr(teacher), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if nip := in.Classroom.HomeroomTeacherNIP; nip != "" {
		pdf.CellFormat(half, 5, "", "", 0, "C", false, 0, "")
		pdf.CellFormat(half, 5, r.tr("NIP. "+nip), "", 1, "C", false, 0, "")
	}
}

func formatGrade(g *float64) string {
	if g == nil {
		return "-"
	}
	return strconv.FormatFloat(*g, 'f', -1, 64)
}

func semesterLabel(semester int) string {
	switch semester {
	case 1:
		return "1 (Ganjil)"
	case 2:
		return "2 (Genap)"
	default:
		return strconv.Itoa(semester)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
