package models

// Student is the learner profile owned 1:1 by a user account.
type Student struct {
	ID             string `db:"id" json:"id"`
	UserID         string `db:"user_id" json:"user_id"`
	RollNumber     string `db:"roll_number" json:"roll_number"`
	EnrollmentYear int    `db:"enrollment_year" json:"enrollment_year"`
	Department     string `db:"department" json:"department"`
	Semester       int    `db:"semester" json:"semester"`
	Section        string `db:"section" json:"section"`
}

// StudentDetail enriches Student with the owning user's identity fields.
type StudentDetail struct {
	Student
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	Active    bool   `db:"active" json:"active"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Department string
	Semester   int
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
