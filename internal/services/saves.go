package services

import (
	"errors"
	"log"
	"time"
	"uolink/internal/models"
	"uolink/internal/utils"

	"gorm.io/gorm"
)

// ToggleSave 切换收藏状态 - 收藏/取消收藏
// 和投票一样走事务：SaveRecord 与 Saves 计数原子变更
func (s *VoteService) ToggleSave(itemPid string, userID uint) (*SaveResult, error) {
	if userID == 0 {
		return nil, NewError(CodeNotAuthenticated, "caller identity required")
	}

	var (
		result *SaveResult
		item   models.Item
	)
	err := s.withRetry(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("pid = ?", itemPid).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(CodeNotFound, "item not found")
			}
			return err
		}

		var existing models.SaveRecord
		err := tx.Where("user_id = ? AND item_id = ?", userID, item.ID).First(&existing).Error
		saved := false
		delta := 0
		switch {
		case err == nil:
			// 已收藏，取消收藏
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			delta = -1
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := models.SaveRecord{UserID: userID, ItemID: item.ID}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			saved = true
			delta = 1
		default:
			return err
		}

		saves := clampZero(item.Saves + delta)
		if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"saves":               saves,
			"last_interaction_at": time.Now(),
		}).Error; err != nil {
			return err
		}

		result = &SaveResult{Saves: saves, Saved: saved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交后副作用，与主写入隔离
	if err := s.indexes.SetSaveIndex(userID, item.Pid, result.Saved); err != nil {
		log.Printf("toggleSave %s: index update failed for user %d: %v", item.Pid, userID, err)
	}
	if s.trending != nil {
		s.trending.Schedule(item.ID)
	}
	if s.reputation != nil && item.OwnerID != userID {
		s.reputation.ApplySaveDelta(item.OwnerID, result.Saved)
	}
	utils.GetCache().Delete("item:detail:" + item.Pid)
	utils.GetCache().InvalidateTag(TagItemLists)

	return result, nil
}
