package models

import (
	"time"
)

// 反向索引条目类型
const (
	IndexKindUp    = "up"
	IndexKindDown  = "down"
	IndexKindSaved = "saved"
)

// IndexEntry 用户反向索引 - 按用户镜像其投票/收藏过的条目
// 和主台账同步写入，允许短暂落后，下次读取/修复任务时自愈。
// 存条目公开 ID（客户端快照直接可用），(user, item, kind) 唯一保证幂等
type IndexEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item_kind" json:"user_id"`
	ItemPid   string    `gorm:"size:36;not null;index;uniqueIndex:idx_user_item_kind" json:"item_pid"`
	Kind      string    `gorm:"size:10;not null;uniqueIndex:idx_user_item_kind" json:"kind"` // up, down, saved
	CreatedAt time.Time `json:"created_at"`
}

// UserIndex 一个用户反向索引的完整快照，也是客户端缓存的 JSON 结构
type UserIndex struct {
	Up    []string `json:"up"`
	Down  []string `json:"down"`
	Saved []string `json:"saved"`
}

// NewUserIndex 返回各集合均为空切片的快照（JSON 序列化为 [] 而非 null）
func NewUserIndex() *UserIndex {
	return &UserIndex{Up: []string{}, Down: []string{}, Saved: []string{}}
}

// Contains 判断集合中是否存在指定条目
func Contains(set []string, pid string) bool {
	for _, s := range set {
		if s == pid {
			return true
		}
	}
	return false
}

// AddToSet 集合语义的追加，已存在则原样返回
func AddToSet(set []string, pid string) []string {
	if Contains(set, pid) {
		return set
	}
	return append(set, pid)
}

// RemoveFromSet 集合语义的移除，不存在则原样返回
func RemoveFromSet(set []string, pid string) []string {
	out := set[:0]
	for _, s := range set {
		if s != pid {
			out = append(out, s)
		}
	}
	return out
}
