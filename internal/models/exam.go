package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Exam is a scored assessment linked to a module or directly to a course.
type Exam struct {
	ID           string         `db:"id" json:"id"`
	ModuleID     *string        `db:"module_id" json:"module_id,omitempty"`
	CourseID     *string        `db:"course_id" json:"course_id,omitempty"`
	Title        string         `db:"title" json:"title"`
	PassingScore *int           `db:"passing_score" json:"passing_score,omitempty"`
	Questions    []ExamQuestion `db:"-" json:"questions,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// TotalQuestions returns the number of scored questions.
func (e Exam) TotalQuestions() int {
	return len(e.Questions)
}

// Threshold returns the exam's passing score, falling back to def.
func (e Exam) Threshold(def int) int {
	if e.PassingScore != nil {
		return *e.PassingScore
	}
	return def
}

// ExamQuestion holds the correct choice for a single question.
type ExamQuestion struct {
	ID            string `db:"id" json:"id"`
	ExamID        string `db:"exam_id" json:"exam_id"`
	Position      int    `db:"position" json:"position"`
	CorrectChoice string `db:"correct_choice" json:"-"`
}

// Answers maps question id to the chosen option and is stored as JSONB.
type Answers map[string]string

// Value implements driver.Valuer.
func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Answers) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Answers{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan answers: unsupported type %T", src)
	}
	out := Answers{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan answers: %w", err)
	}
	*a = out
	return nil
}

// ExamSubmission is an immutable attempt record.
type ExamSubmission struct {
	ID            string    `db:"id" json:"id"`
	ExamID        string    `db:"exam_id" json:"exam_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Answers       Answers   `db:"answers" json:"answers"`
	Score         int       `db:"score" json:"score"`
	Passed        bool      `db:"passed" json:"passed"`
	AttemptNumber int       `db:"attempt_number" json:"attempt_number"`
	SubmittedAt   time.Time `db:"submitted_at" json:"submitted_at"`
}
