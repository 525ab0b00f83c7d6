package schedule

import "github.com/uptrace/bun"

// Class is one scheduled class occurrence. The column names predate this
// service and are kept so existing databases stay readable: the start time
// lives in "time", the date in "class_date", the end in "class_end_time".
// All three are text in fixed zero-padded formats (HH:MM / YYYY-MM-DD), so
// lexicographic order matches chronological order.
type Class struct {
	bun.BaseModel `bun:"table:schedule,alias:c"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	TeacherID   int64  `bun:"teacher_id,notnull" json:"teacherId"`
	TeacherName string `bun:"teacher_name" json:"teacherName"`
	Department  string `bun:"department" json:"department"`
	Batch       string `bun:"batch" json:"batch"`
	Course      string `bun:"course" json:"course"`
	Room        string `bun:"room" json:"room"`
	StartTime   string `bun:"time" json:"startTime"`
	Date        string `bun:"class_date" json:"date"`
	EndTime     string `bun:"class_end_time" json:"endTime"`
}

// CreateClassRequest is the request body for assigning a class. Every field
// is required; the temporal fields must use the fixed formats.
type CreateClassRequest struct {
	Department string `json:"department" validate:"required"`
	Batch      string `json:"batch" validate:"required"`
	Course     string `json:"course" validate:"required"`
	Room       string `json:"room" validate:"required"`
	StartTime  string `json:"startTime" validate:"required,datetime=15:04"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	EndTime    string `json:"endTime" validate:"required,datetime=15:04"`
}

// UpdateClassRequest is a partial update: nil fields keep their current
// value. Supplying any temporal field triggers re-validation of the whole
// (date, start, end) triple against the merged row.
type UpdateClassRequest struct {
	Department *string `json:"department,omitempty" validate:"omitempty,min=1"`
	Batch      *string `json:"batch,omitempty" validate:"omitempty,min=1"`
	Course     *string `json:"course,omitempty" validate:"omitempty,min=1"`
	Room       *string `json:"room,omitempty" validate:"omitempty,min=1"`
	StartTime  *string `json:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
	Date       *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndTime    *string `json:"endTime,omitempty" validate:"omitempty,datetime=15:04"`
}

// IsEmpty reports whether no field was supplied at all.
func (r UpdateClassRequest) IsEmpty() bool {
	return r.Department == nil &&
		r.Batch == nil &&
		r.Course == nil &&
		r.Room == nil &&
		r.StartTime == nil &&
		r.Date == nil &&
		r.EndTime == nil
}

// TouchesTemporal reports whether the update changes any of date, start or
// end time.
func (r UpdateClassRequest) TouchesTemporal() bool {
	return r.StartTime != nil || r.Date != nil || r.EndTime != nil
}
