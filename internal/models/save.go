package models

import (
	"time"
)

// SaveRecord 收藏记录 - 用户收藏条目的布尔关联，(用户, 条目) 唯一
type SaveRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item_save" json:"user_id"`
	ItemID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item_save" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
