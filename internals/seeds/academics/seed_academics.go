package academics

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	academicsModel "tuitionhub_backend/internals/features/academics/model"
	invoiceModel "tuitionhub_backend/internals/features/billing/invoices/model"
)

type UserSeed struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	StudentID int64  `json:"student_id,omitempty"`
}

type EnrollmentSeed struct {
	BatchID   int64  `json:"batch_id"`
	StudentID int64  `json:"student_id"`
	JoinedOn  string `json:"joined_on,omitempty"`
}

type FeePlanSeed struct {
	BatchID     int64  `json:"batch_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Frequency   string `json:"frequency"`
}

type BatchSeed struct {
	BatchID int64  `json:"batch_id"`
	Name    string `json:"name"`
}

type AcademicsSeed struct {
	Users       []UserSeed       `json:"users"`
	Batches     []BatchSeed      `json:"batches"`
	Enrollments []EnrollmentSeed `json:"enrollments"`
	FeePlans    []FeePlanSeed    `json:"fee_plans"`
}

// SeedAcademicsFromJSON inserts rows missing from the file's data set.
// Existing ids are left untouched.
func SeedAcademicsFromJSON(db *gorm.DB, filePath string) error {
	log.Println("📥 Reading seed file:", filePath)

	file, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var data AcademicsSeed
	if err := sonic.Unmarshal(file, &data); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		skip := tx.Clauses(clause.OnConflict{DoNothing: true}).Session(&gorm.Session{})

		for _, u := range data.Users {
			if err := skip.Create(&academicsModel.UserModel{
				UserID: u.UserID, UserName: u.Name, UserEmail: u.Email, UserRole: u.Role,
			}).Error; err != nil {
				return fmt.Errorf("seed user %d: %w", u.UserID, err)
			}
			if u.StudentID > 0 {
				if err := skip.Create(&academicsModel.StudentModel{
					StudentID: u.StudentID, StudentUserID: u.UserID,
				}).Error; err != nil {
					return fmt.Errorf("seed student %d: %w", u.StudentID, err)
				}
			}
		}

		for _, b := range data.Batches {
			if err := skip.Create(&academicsModel.BatchModel{BatchID: b.BatchID, BatchName: b.Name}).Error; err != nil {
				return fmt.Errorf("seed batch %d: %w", b.BatchID, err)
			}
		}

		for _, e := range data.Enrollments {
			row := academicsModel.EnrollmentModel{
				EnrollmentBatchID:   e.BatchID,
				EnrollmentStudentID: e.StudentID,
				EnrollmentIsActive:  true,
			}
			if e.JoinedOn != "" {
				t, err := time.Parse("2006-01-02", e.JoinedOn)
				if err != nil {
					return fmt.Errorf("enrollment %d/%d joined_on: %w", e.BatchID, e.StudentID, err)
				}
				row.EnrollmentJoinedOn = &t
			}
			if err := skip.Create(&row).Error; err != nil {
				return fmt.Errorf("seed enrollment %d/%d: %w", e.BatchID, e.StudentID, err)
			}
		}

		for _, p := range data.FeePlans {
			// fee plans have no natural key; one plan per batch and frequency
			var n int64
			if err := tx.Model(&invoiceModel.FeePlanModel{}).
				Where("fee_plan_batch_id = ? AND fee_plan_frequency = ?", p.BatchID, p.Frequency).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				log.Printf("ℹ️ fee plan batch=%d %s exists, skipping", p.BatchID, p.Frequency)
				continue
			}
			if err := tx.Create(&invoiceModel.FeePlanModel{
				FeePlanBatchID:     p.BatchID,
				FeePlanAmountCents: p.AmountCents,
				FeePlanCurrency:    p.Currency,
				FeePlanFrequency:   invoiceModel.FeePlanFrequency(p.Frequency),
				FeePlanIsActive:    true,
			}).Error; err != nil {
				return fmt.Errorf("seed fee plan batch %d: %w", p.BatchID, err)
			}
		}

		log.Printf("✅ seeded %d users, %d batches, %d enrollments", len(data.Users), len(data.Batches), len(data.Enrollments))
		return nil
	})
}
