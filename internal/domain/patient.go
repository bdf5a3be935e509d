package domain

import "time"

type Patient struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	FullName   string     `gorm:"size:128;not null;index" json:"full_name" binding:"required"`
	DocumentID *string    `gorm:"size:32;index" json:"document_id,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Gender     *string    `gorm:"size:16" json:"gender,omitempty"`
	Phone      *string    `gorm:"size:32" json:"phone,omitempty"`
	Email      *string    `gorm:"size:191" json:"email,omitempty"`
	Address    *string    `gorm:"size:255" json:"address,omitempty"`
	BloodType  *string    `gorm:"size:4" json:"blood_type,omitempty"`
	Allergies  *string    `json:"allergies,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Active     bool       `gorm:"not null;default:true;index" json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Patient) TableName() string { return TablePatients }
