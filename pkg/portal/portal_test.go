package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorvn/mentor/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.PortalConfig{BaseURL: srv.URL, Cookie: "session=default", Timeout: timeout})
}

func float(v float64) *float64 { return &v }

func TestClient_Grades(t *testing.T) {
	var gotCookie, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		gotCookie = req.Header.Get("Cookie")
		gotPath = req.URL.Path
		_ = json.NewEncoder(w).Encode(Grades{
			StudentID: "21520001",
			Semesters: []Semester{{
				Name: "HK1 2024-2025",
				GPA:  8.5,
				Courses: []CourseGrade{{
					Code: "IT003", Name: "Cấu trúc dữ liệu", Credits: 4,
					Final: float(8.5), Average: float(8.2),
				}},
			}},
			CumulativeGPA: 8.2,
			EarnedCredits: 100,
		})
	}, 5*time.Second)

	grades, err := c.Grades(context.Background(), "session=abc123")
	require.NoError(t, err)

	assert.Equal(t, "/api/grades", gotPath)
	assert.Equal(t, "session=abc123", gotCookie, "explicit cookie must override config")
	assert.Equal(t, "21520001", grades.StudentID)
	require.Len(t, grades.Semesters, 1)
	require.Len(t, grades.Semesters[0].Courses, 1)
}

func TestClient_Grades_ConfigCookieFallback(t *testing.T) {
	var gotCookie string
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		gotCookie = req.Header.Get("Cookie")
		_ = json.NewEncoder(w).Encode(Grades{StudentID: "x"})
	}, 5*time.Second)

	_, err := c.Grades(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "session=default", gotCookie, "configured cookie serves when arg empty")
}

func TestClient_Grades_NoCookieAnywhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		t.Error("request should not reach the portal without a cookie")
	}))
	t.Cleanup(srv.Close)

	c := NewClient(config.PortalConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.Grades(context.Background(), "")
	assert.True(t, IsKind(err, KindAuth), "err = %v, want auth kind", err)
}

func TestClient_Schedule(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/schedule", req.URL.Path)
		_ = json.NewEncoder(w).Encode(Schedule{
			Semester: "HK1 2025-2026",
			Entries: []ScheduleEntry{{
				CourseCode: "IT007", CourseName: "Hệ điều hành",
				Day: 3, Periods: "1-3", Room: "B1.14",
			}},
		})
	}, 5*time.Second)

	sched, err := c.Schedule(context.Background(), "session=abc")
	require.NoError(t, err)
	require.Len(t, sched.Entries, 1)
	assert.Equal(t, "B1.14", sched.Entries[0].Room)
}

func TestClient_AuthRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}, 5*time.Second)

	_, err := c.Grades(context.Background(), "session=stale")
	assert.True(t, IsKind(err, KindAuth), "err = %v, want auth kind", err)
}

func TestClient_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(Grades{})
	}, 50*time.Millisecond)

	_, err := c.Grades(context.Background(), "session=abc")
	assert.True(t, IsKind(err, KindTimeout), "err = %v, want timeout kind", err)
}

func TestClient_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}, 5*time.Second)

	_, err := c.Schedule(context.Background(), "session=abc")
	assert.True(t, IsKind(err, KindInvalidResponse), "err = %v, want invalid_response kind", err)
}

func TestGrades_Text(t *testing.T) {
	g := &Grades{
		StudentID: "21520001",
		Semesters: []Semester{{
			Name: "HK1 2024-2025",
			GPA:  8.5,
			Courses: []CourseGrade{{
				Code: "IT003", Name: "Cấu trúc dữ liệu", Credits: 4,
				Process: float(9), Final: float(8.5), Average: float(8.7),
			}},
		}},
		CumulativeGPA: 8.2,
		EarnedCredits: 100,
	}

	text := g.Text()
	for _, want := range []string{
		"21520001",
		"HK1 2024-2025",
		"IT003",
		"4 tín chỉ",
		"quá trình 9",
		"cuối kỳ 8.5",
		"tổng kết 8.7",
		"GPA tích lũy: 8.20",
	} {
		assert.Contains(t, text, want)
	}
}

func TestSchedule_Text(t *testing.T) {
	s := &Schedule{
		Semester: "HK2 2025-2026",
		Entries: []ScheduleEntry{
			{CourseCode: "IT007", CourseName: "Hệ điều hành", Day: 2, Periods: "1-3", Room: "B1.14", Weeks: "1-10"},
			{CourseCode: "IT009", CourseName: "Giới thiệu ngành", Day: 8, Periods: "6-8", Room: "C2.01"},
		},
	}

	text := s.Text()
	for _, want := range []string{"Thứ 2", "Chủ nhật", "tiết 1-3", "phòng B1.14", "tuần 1-10"} {
		assert.Contains(t, text, want)
	}
}
