package model

import (
	"time"
)

type StyleCategory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"unique;not null;size:64"`
	Popular   int       `json:"popular" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	Styles    []Style   `json:"-" gorm:"foreignKey:CategoryID"`
}

type Style struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	Name           string         `json:"name" gorm:"unique;not null;size:64"`
	Description    string         `json:"description" gorm:"type:text"`
	PromptTemplate string         `json:"prompt_template" gorm:"type:text;not null"`
	PreviewImage   string         `json:"preview_image" gorm:"size:256"`
	CategoryID     *uint          `json:"category_id" gorm:"index"`
	Popular        int            `json:"popular" gorm:"default:0"`
	CreatedAt      time.Time      `json:"created_at"`
	Category       *StyleCategory `gorm:"foreignKey:CategoryID;references:ID" json:"category,omitempty"`
}
