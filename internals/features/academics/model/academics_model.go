// file: internals/features/academics/model/academics_model.go
package model

import (
	"time"

	"tuitionhub_backend/internals/constants"
)

/*
  Read models owned by the account / enrollment modules.
  Billing only reads them: payer identity on receipts, ownership checks,
  and fee-plan invoice generation.
*/

const (
	RoleTeacher = constants.RoleTeacher
	RoleStudent = constants.RoleStudent
)

type UserModel struct {
	UserID        int64     `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	UserName      string    `gorm:"column:user_name;type:varchar(120);not null" json:"user_name"`
	UserEmail     string    `gorm:"column:user_email;type:varchar(160);not null;uniqueIndex:uq_users_email" json:"user_email"`
	UserRole      string    `gorm:"column:user_role;type:varchar(16);not null" json:"user_role"`
	UserCreatedAt time.Time `gorm:"column:user_created_at;autoCreateTime" json:"user_created_at"`
}

func (UserModel) TableName() string { return "users" }

type StudentModel struct {
	StudentID        int64     `gorm:"column:student_id;primaryKey;autoIncrement" json:"student_id"`
	StudentUserID    int64     `gorm:"column:student_user_id;not null;uniqueIndex:uq_students_user" json:"student_user_id"`
	StudentCreatedAt time.Time `gorm:"column:student_created_at;autoCreateTime" json:"student_created_at"`
}

func (StudentModel) TableName() string { return "students" }

type BatchModel struct {
	BatchID        int64     `gorm:"column:batch_id;primaryKey;autoIncrement" json:"batch_id"`
	BatchName      string    `gorm:"column:batch_name;type:varchar(120);not null" json:"batch_name"`
	BatchCreatedAt time.Time `gorm:"column:batch_created_at;autoCreateTime" json:"batch_created_at"`
}

func (BatchModel) TableName() string { return "batches" }

type EnrollmentModel struct {
	EnrollmentID        int64      `gorm:"column:enrollment_id;primaryKey;autoIncrement" json:"enrollment_id"`
	EnrollmentBatchID   int64      `gorm:"column:enrollment_batch_id;not null;uniqueIndex:uq_enrollments_batch_student,priority:1" json:"enrollment_batch_id"`
	EnrollmentStudentID int64      `gorm:"column:enrollment_student_id;not null;uniqueIndex:uq_enrollments_batch_student,priority:2" json:"enrollment_student_id"`
	EnrollmentJoinedOn  *time.Time `gorm:"column:enrollment_joined_on;type:date" json:"enrollment_joined_on,omitempty"`
	EnrollmentIsActive  bool       `gorm:"column:enrollment_is_active;not null" json:"enrollment_is_active"`
}

func (EnrollmentModel) TableName() string { return "enrollments" }
