package model

import (
	"time"
)

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username" gorm:"unique;not null;size:64"`
	Password  string    `json:"-"` // bcrypt 哈希，微信用户为空
	Email     string    `json:"email" gorm:"index;size:128"`
	OpenID    *string   `json:"-" gorm:"uniqueIndex;size:64"` // 微信小程序 openid
	Admin     bool      `json:"admin" gorm:"not null;default:false"`
	IsNew     bool      `json:"is_new" gorm:"default:true"`
	Tasks     []Task    `json:"-"`
}
