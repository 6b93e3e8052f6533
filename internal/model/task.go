package model

import (
	"time"
)

// 任务状态。一个任务只会以 pending 创建，completed 为终态。
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

type Task struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uint       `json:"user_id" gorm:"index;not null"`
	StyleID      uint       `json:"style_id" gorm:"index;not null"`
	InputImage   string     `json:"input_image" gorm:"size:256;not null"`
	OutputImage  string     `json:"output_image" gorm:"size:256"`
	CustomPrompt string     `json:"custom_prompt" gorm:"type:text"`
	Status       string     `json:"status" gorm:"size:32;index;not null"`
	Progress     float64    `json:"progress" gorm:"default:0"`
	Error        string     `json:"error" gorm:"type:text"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	User         User       `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	Style        Style      `gorm:"foreignKey:StyleID;references:ID" json:"-"`
}
