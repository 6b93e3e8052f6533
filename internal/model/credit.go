package model

import (
	"time"
)

// Credit 与用户一一对应，余额只允许通过原子增减操作修改
type Credit struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	UserID            uint       `json:"user_id" gorm:"uniqueIndex;not null"`
	Amount            int        `json:"amount" gorm:"not null;default:0"`
	IsVip             bool       `json:"is_vip" gorm:"not null;default:false"`
	LastVipCreditDate *time.Time `json:"last_vip_credit_date"`
	User              User       `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
}
