package dto

// CourseStats aggregates a student's progress within a course.
type CourseStats struct {
	TotalLessons      int  `json:"totalLessons"`
	CompletedLessons  int  `json:"completedLessons"`
	CompletionRate    int  `json:"completionRate"`
	ExamsCount        int  `json:"examsCount"`
	ExamsAttempted    int  `json:"examsAttempted"`
	AverageScore      *int `json:"averageScore"`
	PassRate          int  `json:"passRate"`
	RequiredCompleted bool `json:"requiredCompleted"`
}
