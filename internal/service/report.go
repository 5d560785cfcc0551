package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"project-tracker/internal/model"
	"project-tracker/internal/store"
)

// 报表均为缓存快照上的纯函数，不读写后端，不修改缓存

// RosterRow 名册中的一行
type RosterRow struct {
	TagNumber     string
	StudentNumber string
	Name          string
	Email         string
	Status        model.EnrollmentStatus
	Statuses      []model.ProjectStatus // 与 Roster.Projects 一一对应
}

// Roster 某学期的名册
type Roster struct {
	Semester model.Semester
	Projects []model.Project
	Rows     []RosterRow
}

// BuildRoster 组装名册：选课按牌号数值升序（稳定），项目按 sequence_order
func BuildRoster(snap *store.Snapshot, semesterID string) (*Roster, error) {
	semester, ok := snap.Semester(semesterID)
	if !ok {
		return nil, ErrNoSemester
	}

	projects := semesterProjects(snap, semesterID)

	var enrollments []model.Enrollment
	for _, e := range snap.Enrollments {
		if e.SemesterID == semesterID {
			enrollments = append(enrollments, e)
		}
	}
	sort.SliceStable(enrollments, func(i, j int) bool {
		return model.TagValue(enrollments[i].TagNumber) < model.TagValue(enrollments[j].TagNumber)
	})

	states := snap.StateIndex()
	rows := make([]RosterRow, 0, len(enrollments))
	for _, e := range enrollments {
		row := RosterRow{
			TagNumber:     e.TagNumber,
			StudentNumber: e.StudentNumber,
			Name:          e.FullName,
			Email:         e.Email,
			Status:        e.Status,
			Statuses:      make([]model.ProjectStatus, len(projects)),
		}
		for i, p := range projects {
			row.Statuses[i] = statusFor(states, p.ID, e.ProfileID)
		}
		rows = append(rows, row)
	}

	return &Roster{Semester: semester, Projects: projects, Rows: rows}, nil
}

func semesterProjects(snap *store.Snapshot, semesterID string) []model.Project {
	var projects []model.Project
	for _, p := range snap.Projects {
		if p.SemesterID == semesterID {
			projects = append(projects, p)
		}
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].SequenceOrder < projects[j].SequenceOrder
	})
	return projects
}

// statusFor 无记录或待关联的选课视为 not_started
func statusFor(states map[model.StateKey]model.ProjectState, projectID string, profileID *string) model.ProjectStatus {
	if profileID == nil || *profileID == "" {
		return model.StatusNotStarted
	}
	st, ok := states[model.StateKey{ProjectID: projectID, StudentID: *profileID}]
	if !ok || st.Status == "" {
		return model.StatusNotStarted
	}
	return st.Status
}

// ────────────────────── CSV ──────────────────────

// CSVFileName roster_<课程码>.csv
func (r *Roster) CSVFileName() string {
	return "roster_" + SanitizeFilename(r.Semester.CourseCode) + ".csv"
}

// CSV 姓名列总是加引号，其余字段仅在含逗号、引号或换行时加引号
func (r *Roster) CSV() []byte {
	var b strings.Builder

	header := []string{"Tag", "Student Number", "Name", "Email", "Status"}
	for _, p := range r.Projects {
		header = append(header, p.Code)
	}
	for i, h := range header {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvField(h, false))
	}

	for _, row := range r.Rows {
		b.WriteByte('\n')
		b.WriteString(csvField(row.TagNumber, false))
		b.WriteByte(',')
		b.WriteString(csvField(row.StudentNumber, false))
		b.WriteByte(',')
		b.WriteString(csvField(row.Name, true))
		b.WriteByte(',')
		b.WriteString(csvField(row.Email, false))
		b.WriteByte(',')
		b.WriteString(csvField(string(row.Status), false))
		for _, st := range row.Statuses {
			b.WriteByte(',')
			b.WriteString(csvField(string(st), false))
		}
	}
	return []byte(b.String())
}

func csvField(v string, always bool) string {
	if always || strings.ContainsAny(v, ",\"\r\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

// ────────────────────── XLSX ──────────────────────

// XLSXFileName roster_<课程码>.xlsx
func (r *Roster) XLSXFileName() string {
	return "roster_" + SanitizeFilename(r.Semester.CourseCode) + ".xlsx"
}

// XLSX 同 CSV 的行，工作表以学期命名
func (r *Roster) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(r.Semester.Name)
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	header := []interface{}{"Tag", "Student Number", "Name", "Email", "Status"}
	for _, p := range r.Projects {
		header = append(header, p.Code)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle)
	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "D", 28)

	for i, row := range r.Rows {
		values := []interface{}{row.TagNumber, row.StudentNumber, row.Name, row.Email, string(row.Status)}
		for _, st := range row.Statuses {
			values = append(values, string(st))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("写出 xlsx 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName 工作表名最长 31 字符且不能含 : \ / ? * [ ]
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Sheet1"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

// ────────────────────── ICS ──────────────────────

// ScheduleICS 学期日程导出为 iCalendar，每个日程一个全天事件
func ScheduleICS(snap *store.Snapshot, semesterID string, stamp time.Time) ([]byte, error) {
	semester, ok := snap.Semester(semesterID)
	if !ok {
		return nil, ErrNoSemester
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//project-tracker//schedule//EN")
	cal.SetXWRCalName(semester.Name)

	for _, item := range snap.ScheduleItems {
		if item.SemesterID != semesterID {
			continue
		}
		ev := cal.AddEvent(item.ID + "@project-tracker")
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(item.Title)
		ev.SetAllDayStartAt(item.Date.Time)
		ev.SetAllDayEndAt(item.Date.AddDate(0, 0, 1))
		ev.AddProperty(ics.ComponentPropertyCategories, string(item.Type))
	}

	return []byte(cal.Serialize()), nil
}

// ICSFileName schedule_<课程码>.ics
func ICSFileName(snap *store.Snapshot, semesterID string) string {
	semester, _ := snap.Semester(semesterID)
	return "schedule_" + SanitizeFilename(semester.CourseCode) + ".ics"
}

// ────────────────────── Progress ──────────────────────

// ProjectProgress 单个项目各状态的学生数
type ProjectProgress struct {
	Project model.Project
	Total   int
	Counts  map[model.ProjectStatus]int
}

// Progress 按项目统计本学期在读学生的进度分布
func Progress(snap *store.Snapshot, semesterID string) ([]ProjectProgress, error) {
	if _, ok := snap.Semester(semesterID); !ok {
		return nil, ErrNoSemester
	}

	var students []*string
	for _, e := range snap.Enrollments {
		if e.SemesterID == semesterID && e.Status == model.EnrollmentActive {
			students = append(students, e.ProfileID)
		}
	}

	states := snap.StateIndex()
	projects := semesterProjects(snap, semesterID)
	out := make([]ProjectProgress, 0, len(projects))
	for _, p := range projects {
		pp := ProjectProgress{Project: p, Total: len(students), Counts: make(map[model.ProjectStatus]int)}
		for _, st := range model.AllProjectStatuses() {
			pp.Counts[st] = 0
		}
		for _, profileID := range students {
			pp.Counts[statusFor(states, p.ID, profileID)]++
		}
		out = append(out, pp)
	}
	return out, nil
}
