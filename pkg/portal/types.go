package portal

import (
	"fmt"
	"strings"
)

// Grades is the transcript the portal returns for one student.
type Grades struct {
	StudentID     string     `json:"student_id"`
	StudentName   string     `json:"student_name,omitempty"`
	Semesters     []Semester `json:"semesters"`
	CumulativeGPA float64    `json:"cumulative_gpa"`
	EarnedCredits int        `json:"earned_credits"`
}

// Semester groups course grades for one term.
type Semester struct {
	Name    string        `json:"name"`
	GPA     float64       `json:"gpa"`
	Courses []CourseGrade `json:"courses"`
}

// CourseGrade holds the component scores of one course.
//
// Component scores are pointers because the portal omits components the
// course does not grade (e.g. no lab score for theory-only courses).
type CourseGrade struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Credits  int      `json:"credits"`
	Process  *float64 `json:"process,omitempty"`
	Midterm  *float64 `json:"midterm,omitempty"`
	Practice *float64 `json:"practice,omitempty"`
	Final    *float64 `json:"final,omitempty"`
	Average  *float64 `json:"average,omitempty"`
}

// Text renders the transcript as a human-readable block.
func (g *Grades) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bảng điểm sinh viên %s", g.StudentID)
	if g.StudentName != "" {
		fmt.Fprintf(&b, " (%s)", g.StudentName)
	}
	b.WriteString("\n")
	for _, sem := range g.Semesters {
		fmt.Fprintf(&b, "\n%s (GPA: %.2f)\n", sem.Name, sem.GPA)
		for _, c := range sem.Courses {
			fmt.Fprintf(&b, "- %s %s (%d tín chỉ):", c.Code, c.Name, c.Credits)
			parts := make([]string, 0, 4)
			if c.Process != nil {
				parts = append(parts, fmt.Sprintf("quá trình %s", formatScore(*c.Process)))
			}
			if c.Midterm != nil {
				parts = append(parts, fmt.Sprintf("giữa kỳ %s", formatScore(*c.Midterm)))
			}
			if c.Practice != nil {
				parts = append(parts, fmt.Sprintf("thực hành %s", formatScore(*c.Practice)))
			}
			if c.Final != nil {
				parts = append(parts, fmt.Sprintf("cuối kỳ %s", formatScore(*c.Final)))
			}
			if len(parts) > 0 {
				b.WriteString(" " + strings.Join(parts, ", "))
			}
			if c.Average != nil {
				fmt.Fprintf(&b, " → tổng kết %s", formatScore(*c.Average))
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\nGPA tích lũy: %.2f | Số tín chỉ tích lũy: %d\n", g.CumulativeGPA, g.EarnedCredits)
	return b.String()
}

// Schedule is the weekly timetable the portal returns for one student.
type Schedule struct {
	StudentID string          `json:"student_id"`
	Semester  string          `json:"semester"`
	Entries   []ScheduleEntry `json:"entries"`
}

// ScheduleEntry is one class meeting in the weekly timetable.
type ScheduleEntry struct {
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	Group      string `json:"group,omitempty"`

	// Day is the Vietnamese weekday number: 2 (Monday) through 7
	// (Saturday), 8 for Sunday.
	Day int `json:"day"`

	// Periods is the class-period range, e.g. "1-3".
	Periods string `json:"periods"`

	Room       string `json:"room"`
	Instructor string `json:"instructor,omitempty"`

	// Weeks lists the teaching weeks, e.g. "1-10" or "1-5,7-10".
	Weeks string `json:"weeks,omitempty"`
}

// Text renders the timetable as a human-readable block.
func (s *Schedule) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thời khóa biểu %s", s.Semester)
	if s.StudentID != "" {
		fmt.Fprintf(&b, " của sinh viên %s", s.StudentID)
	}
	b.WriteString("\n")
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "- %s: %s %s", dayName(e.Day), e.CourseCode, e.CourseName)
		if e.Group != "" {
			fmt.Fprintf(&b, " (lớp %s)", e.Group)
		}
		fmt.Fprintf(&b, ", tiết %s, phòng %s", e.Periods, e.Room)
		if e.Instructor != "" {
			fmt.Fprintf(&b, ", GV: %s", e.Instructor)
		}
		if e.Weeks != "" {
			fmt.Fprintf(&b, ", tuần %s", e.Weeks)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func dayName(day int) string {
	if day >= 2 && day <= 7 {
		return fmt.Sprintf("Thứ %d", day)
	}
	return "Chủ nhật"
}

// formatScore prints a score without a trailing zero decimal (8 rather
// than 8.0, but 8.5 stays 8.5), matching how the portal displays them.
func formatScore(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}
