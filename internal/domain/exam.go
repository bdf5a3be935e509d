package domain

import (
	"time"

	"gorm.io/gorm"
)

// 检查状态
const (
	ExamScheduled = "scheduled"
	ExamCompleted = "completed"
	ExamCancelled = "cancelled"
)

type Exam struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PatientID string    `gorm:"size:36;not null;index" json:"patient_id" binding:"required"`
	DoctorID  *string   `gorm:"size:36;index" json:"doctor_id,omitempty"`
	ExamType  string    `gorm:"size:64;not null" json:"exam_type" binding:"required"`
	ExamDate  time.Time `gorm:"index" json:"exam_date"`
	Status    string    `gorm:"size:16;not null;default:scheduled" json:"status"`
	Diagnosis *string   `json:"diagnosis,omitempty"`
	Findings  *string   `json:"findings,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Patient *Patient `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  *User    `gorm:"foreignKey:DoctorID" json:"-"`
}

func (Exam) TableName() string { return TableExams }

// BeforeCreate 未给检查日期时取当前时间
func (e *Exam) BeforeCreate(tx *gorm.DB) error {
	if e.ExamDate.IsZero() {
		e.ExamDate = tx.NowFunc()
	}
	if e.Status == "" {
		e.Status = ExamScheduled
	}
	return nil
}
