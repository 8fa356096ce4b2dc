package models

import (
	"time"
)

// 投票方向
const (
	VoteUp   = "up"
	VoteDown = "down"
	VoteNone = "" // 未投票 / 已撤回
)

// VoteValue 投票方向对应的存储值 (+1 / -1)
func VoteValue(voteType string) int {
	if voteType == VoteDown {
		return -1
	}
	return 1
}

// VoteRecord 投票记录 - 每个 (用户, 条目) 最多一条
// 撤回投票时整行删除，而不是把 Value 置零
type VoteRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item_vote" json:"user_id"`
	ItemID    uint      `gorm:"not null;index;uniqueIndex:idx_user_item_vote" json:"item_id"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoteType 把存储值还原为方向字符串
func (v *VoteRecord) VoteType() string {
	if v.Value < 0 {
		return VoteDown
	}
	return VoteUp
}

// ApplyVote 计算一次点击后的新状态：toggle-off / 换向 / 新投
// 返回新的用户投票方向和两个计数器的增量。
// 服务端事务和客户端乐观更新共用同一份逻辑，保证两边推演一致
func ApplyVote(current, pressed string) (next string, dUp, dDown int) {
	switch {
	case current == pressed:
		// 同方向再点一次 = 撤回
		next = VoteNone
		if pressed == VoteUp {
			dUp = -1
		} else {
			dDown = -1
		}
	case current == VoteNone:
		next = pressed
		if pressed == VoteUp {
			dUp = 1
		} else {
			dDown = 1
		}
	default:
		// 换向：旧计数 -1，新计数 +1，单步完成
		next = pressed
		if pressed == VoteUp {
			dUp, dDown = 1, -1
		} else {
			dUp, dDown = -1, 1
		}
	}
	return next, dUp, dDown
}
