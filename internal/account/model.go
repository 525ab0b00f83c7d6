package account

import "github.com/uptrace/bun"

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Teacher is an instructor account. Rows are created at registration and
// never updated or deleted in-app.
type Teacher struct {
	bun.BaseModel `bun:"table:teachers,alias:t"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Name     string `bun:"name,notnull" json:"name"`
	Surname  string `bun:"surname,notnull" json:"surname"`
	Email    string `bun:"email,unique,notnull" json:"email"`
	Password string `bun:"password,notnull" json:"-"` // Never expose password in JSON
}

// Student is a student account. Batch and department together form the
// audience key that selects which classes the student sees.
type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Name       string `bun:"name,notnull" json:"name"`
	Surname    string `bun:"surname,notnull" json:"surname"`
	Email      string `bun:"email,unique,notnull" json:"email"`
	Password   string `bun:"password,notnull" json:"-"`
	Batch      string `bun:"batch" json:"batch"`
	Department string `bun:"department" json:"department"`
}

// RegisterTeacherRequest is the request body for teacher registration.
// SecretAnswer is checked against the shared registration secret.
type RegisterTeacherRequest struct {
	Name         string `json:"name" validate:"required"`
	Surname      string `json:"surname" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	SecretAnswer string `json:"secretAnswer" validate:"required"`
}

// RegisterStudentRequest is the request body for student registration.
type RegisterStudentRequest struct {
	Name       string `json:"name" validate:"required"`
	Surname    string `json:"surname" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Batch      string `json:"batch" validate:"required"`
	Department string `json:"department" validate:"required"`
}

// LoginRequest is the request body for login (both roles).
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse carries the id assigned to the new account.
type RegisterResponse struct {
	ID int64 `json:"id"`
}

// LoginResponse is returned on successful login; the access token itself
// travels in the HttpOnly cookie, never in the body.
type LoginResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}
