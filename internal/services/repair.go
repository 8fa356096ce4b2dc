package services

import (
	"log"
	"time"
	"uolink/internal/models"
	"uolink/internal/utils"

	"gorm.io/gorm"
)

// RepairService 对账修复任务
// 存储层没有外键和唯一约束兜底（参见 IndexEntry 的注释），计数器和
// 反向索引理论上可能漂移；这里周期性地用记录行数回填真值
type RepairService struct {
	db      *gorm.DB
	indexes *IndexService
}

func NewRepairService(db *gorm.DB, indexes *IndexService) *RepairService {
	return &RepairService{db: db, indexes: indexes}
}

// RepairItemCounters 重算全部条目的计数器，返回被修正的条目数
// 不变量：Item.Upvotes == count(VoteRecord{item, +1})，down/saves 同理
func (s *RepairService) RepairItemCounters() (int, error) {
	fixed := 0
	var items []models.Item
	result := s.db.FindInBatches(&items, 200, func(tx *gorm.DB, _ int) error {
		for _, item := range items {
			var up, down, saves int64
			if err := s.db.Model(&models.VoteRecord{}).
				Where("item_id = ? AND value = 1", item.ID).Count(&up).Error; err != nil {
				return err
			}
			if err := s.db.Model(&models.VoteRecord{}).
				Where("item_id = ? AND value = -1", item.ID).Count(&down).Error; err != nil {
				return err
			}
			if err := s.db.Model(&models.SaveRecord{}).
				Where("item_id = ?", item.ID).Count(&saves).Error; err != nil {
				return err
			}

			if item.Upvotes == int(up) && item.Downvotes == int(down) && item.Saves == int(saves) {
				continue
			}

			log.Printf("repair: item %s counters drifted (up %d->%d, down %d->%d, saves %d->%d)",
				item.Pid, item.Upvotes, up, item.Downvotes, down, item.Saves, saves)
			if err := s.db.Model(&models.Item{}).Where("id = ?", item.ID).
				Updates(map[string]interface{}{
					"upvotes":           int(up),
					"downvotes":         int(down),
					"saves":             int(saves),
					"credibility_score": utils.Credibility(int(up), int(down)),
				}).Error; err != nil {
				return err
			}
			fixed++
		}
		return nil
	})
	return fixed, result.Error
}

// RebuildUserIndex 用投票/收藏记录整体重建一个用户的反向索引
// 用于索引写入失败后的自愈
func (s *RepairService) RebuildUserIndex(userID uint) error {
	type recordRow struct {
		Pid   string
		Value int
	}

	var votes []recordRow
	if err := s.db.Table("vote_records").
		Select("items.pid AS pid, vote_records.value AS value").
		Joins("JOIN items ON items.id = vote_records.item_id").
		Where("vote_records.user_id = ?", userID).
		Scan(&votes).Error; err != nil {
		return err
	}

	var saved []string
	if err := s.db.Table("save_records").
		Select("items.pid").
		Joins("JOIN items ON items.id = save_records.item_id").
		Where("save_records.user_id = ?", userID).
		Pluck("items.pid", &saved).Error; err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.IndexEntry{}).Error; err != nil {
			return err
		}
		entries := make([]models.IndexEntry, 0, len(votes)+len(saved))
		for _, v := range votes {
			kind := models.IndexKindUp
			if v.Value < 0 {
				kind = models.IndexKindDown
			}
			entries = append(entries, models.IndexEntry{UserID: userID, ItemPid: v.Pid, Kind: kind})
		}
		for _, pid := range saved {
			entries = append(entries, models.IndexEntry{UserID: userID, ItemPid: pid, Kind: models.IndexKindSaved})
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}

// StartScheduled 按固定间隔跑一轮计数器对账
func (s *RepairService) StartScheduled(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			fixed, err := s.RepairItemCounters()
			if err != nil {
				log.Printf("repair run failed: %v", err)
				continue
			}
			if fixed > 0 {
				log.Printf("repair run fixed %d items", fixed)
			}
		}
	}()
}
