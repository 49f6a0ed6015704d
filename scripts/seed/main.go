package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type studentSeed struct {
	RegNo    string `json:"reg_no"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Status   string `json:"status,omitempty"`
}

type courseSeed struct {
	Code       string `json:"code"`
	Title      string `json:"title"`
	Credits    int    `json:"credits"`
	Instructor string `json:"instructor,omitempty"`
	Semester   string `json:"semester"`
	Department string `json:"department,omitempty"`
}

type enrollmentSeed struct {
	StudentRegNo string `json:"student_reg_no"`
	CourseCode   string `json:"course_code"`
	Grade        string `json:"grade,omitempty"`
}

type fixture struct {
	Students    []studentSeed    `json:"students"`
	Courses     []courseSeed     `json:"courses"`
	Enrollments []enrollmentSeed `json:"enrollments"`
}

type tally struct {
	created int
	skipped int
	failed  int
}

func main() {
	var (
		base        string
		fixturePath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "Registrar API base URL")
	flag.StringVar(&fixturePath, "fixture", filepath.Join("scripts", "seed", "fixture.json"), "Path to JSON fixture file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	fix, err := loadFixture(fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	base = strings.TrimRight(base, "/")

	var courses, students, seats, grades tally

	for _, c := range fix.Courses {
		apply(&courses, post(client, base+"/courses", c))
	}

	ids := make(map[string]int64, len(fix.Students))
	for _, s := range fix.Students {
		data, outcome := post(client, base+"/students", s)
		apply(&students, data, outcome)
		if id := studentID(data); id > 0 {
			ids[s.RegNo] = id
		} else if outcome == outcomeSkipped {
			if id, err := lookupStudentID(client, base, s.RegNo); err == nil {
				ids[s.RegNo] = id
			}
		}
	}

	for _, e := range fix.Enrollments {
		id, ok := ids[e.StudentRegNo]
		if !ok {
			log.Printf("enrollment skipped: unknown student %s", e.StudentRegNo)
			seats.failed++
			continue
		}
		payload := map[string]interface{}{"student_id": id, "course_code": e.CourseCode}
		apply(&seats, post(client, base+"/enrollments", payload))
		if e.Grade == "" {
			continue
		}
		payload["grade"] = e.Grade
		apply(&grades, post(client, base+"/enrollments/grade", payload))
	}

	fmt.Println("Seed Report")
	fmt.Println("===========")
	report("courses", courses)
	report("students", students)
	report("enrollments", seats)
	report("grades", grades)

	if courses.failed+students.failed+seats.failed+grades.failed > 0 {
		os.Exit(1)
	}
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fix fixture
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, err
	}
	if len(fix.Students) == 0 && len(fix.Courses) == 0 {
		return nil, fmt.Errorf("no records defined in %s", path)
	}
	return &fix, nil
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeFailed
)

// post sends the payload and classifies the result. A conflict means the
// record already exists, so re-running the seed stays idempotent.
func post(client *http.Client, url string, payload interface{}) (map[string]interface{}, outcome) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal payload for %s: %v", url, err)
		return nil, outcomeFailed
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("POST %s: %v", url, err)
		return nil, outcomeFailed
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, outcomeSkipped
	case resp.StatusCode >= 400:
		log.Printf("POST %s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(raw)))
		return nil, outcomeFailed
	}

	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, outcomeCreated
	}
	return envelope.Data, outcomeCreated
}

func apply(t *tally, _ map[string]interface{}, o outcome) {
	switch o {
	case outcomeCreated:
		t.created++
	case outcomeSkipped:
		t.skipped++
	default:
		t.failed++
	}
}

func studentID(data map[string]interface{}) int64 {
	if data == nil {
		return 0
	}
	if id, ok := data["id"].(float64); ok {
		return int64(id)
	}
	return 0
}

// lookupStudentID resolves an existing student's ID by registration number.
func lookupStudentID(client *http.Client, base, regNo string) (int64, error) {
	resp, err := client.Get(base + "/students?search=" + regNo)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return 0, err
	}
	for _, row := range envelope.Data {
		if rn, ok := row["reg_no"].(string); ok && rn == regNo {
			return studentID(row), nil
		}
	}
	return 0, fmt.Errorf("student %s not found", regNo)
}

func report(label string, t tally) {
	fmt.Printf("  %-12s created: %d | skipped: %d | failed: %d\n", label, t.created, t.skipped, t.failed)
}
