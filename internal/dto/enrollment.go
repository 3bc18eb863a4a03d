package dto

// EligibilityResult is the outcome of evaluating whether a student may start a course.
type EligibilityResult struct {
	CanEnroll          bool   `json:"canEnroll"`
	Reason             string `json:"reason"`
	HasPermission      bool   `json:"hasPermission"`
	IncompleteCourses  int    `json:"incompleteCourses"`
	CurrentEnrollments int    `json:"currentEnrollments"`
}

// EnrollRequest creates a single manual enrollment.
type EnrollRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// EnrollmentResult reports a successful single enrollment.
type EnrollmentResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	EnrollmentID string `json:"enrollmentId,omitempty"`
}

// BulkEnrollRequest enrolls many distinct students into one course.
type BulkEnrollRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,unique,dive,required"`
	CourseID   string   `json:"courseId" validate:"required"`
	Notes      string   `json:"notes" validate:"max=1000"`
}

// BulkEnrollSuccess is one enrolled student.
type BulkEnrollSuccess struct {
	StudentID    string `json:"studentId"`
	EnrollmentID string `json:"enrollmentId"`
}

// BulkEnrollFailure is one student that could not be enrolled.
type BulkEnrollFailure struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
	Code      string `json:"code"`
}

// BulkEnrollResult partitions the requested students into outcomes.
type BulkEnrollResult struct {
	Successful []BulkEnrollSuccess `json:"successful"`
	Failed     []BulkEnrollFailure `json:"failed"`
}

// CompleteCourseRequest carries the final exam score for an enrollment.
type CompleteCourseRequest struct {
	ExamScore *float64 `json:"examScore" validate:"required,gte=0,lte=100"`
}

// CompletionResult reports the outcome of a completion attempt.
type CompletionResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	IsApproved bool   `json:"isApproved"`
}
