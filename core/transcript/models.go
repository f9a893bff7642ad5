package transcript

// DebtGrade4 is the exclusive upper bound of a failing 4-point grade.
const DebtGrade4 = 1.0

// StudentMetric is the aggregated academic standing of one student.
type StudentMetric struct {
	StudentID       string  `json:"student_id"`
	WeightedGPA4    float64 `json:"weighted_gpa4"`    // 0 when WeightedCredits is 0
	DebtCredits     float64 `json:"debt_credits"`     // credits of final rows graded below DebtGrade4
	WeightedCredits float64 `json:"weighted_credits"` // denominator of WeightedGPA4
}

// HasWeightedCredits reports whether WeightedGPA4 was computed from at least one weighted row.
func (m StudentMetric) HasWeightedCredits() bool {
	return m.WeightedCredits > 0
}

// FinalGrade is one final transcript row joined to its course.
// Credits is nil when the course is missing or carries no credit weight; Grade4 is nil when ungraded.
type FinalGrade struct {
	StudentID string
	CourseID  string
	Grade4    *float64
	Credits   *float64
}
