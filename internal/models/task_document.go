package models

import "gorm.io/gorm"

// TaskDocument is a reference to a file hosted by the object-storage
// provider. The server never holds the file bytes.
type TaskDocument struct {
	ID               string `gorm:"type:varchar(36);primarykey" json:"_id"`
	TaskID           string `gorm:"type:varchar(36);index;not null" json:"-"`
	Position         int    `gorm:"not null;default:0" json:"-"`
	SecureURL        string `gorm:"type:text" json:"secure_url"`
	PublicID         string `gorm:"type:varchar(512)" json:"public_id"`
	OriginalFilename string `gorm:"type:varchar(512)" json:"original_filename"`
}

func (d *TaskDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = NewID()
	}
	return nil
}
