package models

import (
	"time"
)

// Item 内容条目 - 用户上传文档的元数据与投票台账（Ledger）
// Upvotes/Downvotes/Saves 为非规范化计数，由引擎在事务内维护，
// 必须与 VoteRecord/SaveRecord 的行数精确一致
type Item struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	Pid              string    `gorm:"uniqueIndex;size:36;not null" json:"id"` // 对外公开 ID (uuid)
	OwnerID          uint      `gorm:"not null;index" json:"owner_id"`
	Owner            User      `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title            string    `gorm:"not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	Subject          string    `gorm:"size:100;index" json:"subject"`
	BlobKey          string    `gorm:"size:200" json:"-"` // 对象存储中的文件 key，删除时带走
	Upvotes          int       `gorm:"default:0" json:"upvotes"`
	Downvotes        int       `gorm:"default:0" json:"downvotes"`
	Saves            int       `gorm:"default:0" json:"saves"`
	CredibilityScore int       `gorm:"default:0" json:"credibility_score"`
	TrendingScore    float64   `gorm:"default:0;index" json:"trending_score"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// 非数据库字段，用于查询时填充
	CommentCount int `gorm:"-" json:"comment_count"`
}
