package models

import (
	"time"
)

// User 身份提供方（外部协作者）在本库中的镜像
// 引擎只消费 bearer token 查找和 owner/admin 判定，不负责注册与登录
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"not null" json:"username"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	APIToken   string    `gorm:"uniqueIndex;size:64;not null" json:"-"` // bearer token，由身份提供方签发
	Role       string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	Reputation int       `gorm:"default:0" json:"reputation"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin 管理员可以删除任何条目
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
