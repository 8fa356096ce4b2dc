package services

import (
	"uolink/internal/models"

	"gorm.io/gorm"
)

// 声望动作常量
const (
	ActionItemUpvoted   = "文档获赞"
	ActionItemDownvoted = "文档被踩"
	ActionVoteRetracted = "投票被撤回"
	ActionItemSaved     = "文档被收藏"
	ActionItemUnsaved   = "文档取消收藏"
)

// 声望值常量
const (
	RepItemSaved   = 3
	RepItemUnsaved = -3
)

// ReputationService 上传者声望 - 投票/收藏的副产品
// 流水与余额在同一事务内变更，但整体异步执行，不阻塞主流程
type ReputationService struct {
	db *gorm.DB
}

func NewReputationService(db *gorm.DB) *ReputationService {
	return &ReputationService{db: db}
}

// Add 添加声望并记录流水（正数增加，负数扣除）
func (s *ReputationService) Add(userID uint, amount int, action string) error {
	if amount == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		entry := models.ReputationLog{
			UserID: userID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", amount)).
			Error
	})
}

// ApplyVoteDelta 按可信度变化异步调整条目作者的声望
func (s *ReputationService) ApplyVoteDelta(ownerID uint, finalVote string, credDelta int) {
	if credDelta == 0 {
		return
	}
	action := ActionVoteRetracted
	switch finalVote {
	case models.VoteUp:
		action = ActionItemUpvoted
	case models.VoteDown:
		action = ActionItemDownvoted
	}
	go func() {
		_ = s.Add(ownerID, credDelta, action)
	}()
}

// ApplySaveDelta 收藏/取消收藏对作者声望的异步影响
func (s *ReputationService) ApplySaveDelta(ownerID uint, saved bool) {
	amount, action := RepItemUnsaved, ActionItemUnsaved
	if saved {
		amount, action = RepItemSaved, ActionItemSaved
	}
	go func() {
		_ = s.Add(ownerID, amount, action)
	}()
}
