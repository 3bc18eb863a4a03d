package dto

// SubmitExamRequest carries a student's answers keyed by question id. Omitted
// answers are a valid, empty submission.
type SubmitExamRequest struct {
	Answers map[string]string `json:"answers"`
}
