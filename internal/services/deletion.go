package services

import (
	"errors"
	"log"
	"uolink/internal/models"
	"uolink/internal/utils"

	"gorm.io/gorm"
)

// 列表缓存统一打这个 tag，条目增删和计数变更时整组失效
const TagItemLists = "item:lists"

// BlobDeleter 对象存储协作者：按 key 删除底层文件
type BlobDeleter interface {
	Delete(key string) error
}

// DeletionService 级联删除编排 - 删条目并带走所有引用它的记录
// 主删除（条目本身）是唯一必须成功的操作；之后的每个清理阶段相互隔离，
// 单个阶段失败只记录日志，不影响后续阶段，更不回滚已提交的主删除
type DeletionService struct {
	db      *gorm.DB
	indexes *IndexService
	blobs   BlobDeleter
}

func NewDeletionService(db *gorm.DB, indexes *IndexService, blobs BlobDeleter) *DeletionService {
	return &DeletionService{db: db, indexes: indexes, blobs: blobs}
}

// DeleteItem 删除条目及其全部依赖记录
// 权限检查失败在任何写入前中止；条目删除失败整体中止
func (s *DeletionService) DeleteItem(itemPid string, requester *models.User) error {
	if requester == nil {
		return NewError(CodeNotAuthenticated, "caller identity required")
	}

	// 1. 权限检查，先于一切写入
	var item models.Item
	if err := s.db.Where("pid = ?", itemPid).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(CodeNotFound, "item not found")
		}
		return WrapError(CodeInternal, "item lookup failed", err)
	}
	if item.OwnerID != requester.ID && !requester.IsAdmin() {
		return NewError(CodeAccessDenied, "only the owner or an admin can delete this item")
	}

	// 2. 原子删除条目本身，BlobKey 已随 item 捕获，失败则整体中止
	// 台账计数与条目同一行，随行一起消失
	res := s.db.Where("id = ?", item.ID).Delete(&models.Item{})
	if res.Error != nil {
		return WrapError(CodeInternal, "item deletion failed", res.Error)
	}
	if res.RowsAffected == 0 {
		// 并发删除已经抢先完成
		return NewError(CodeNotFound, "item already deleted")
	}

	// 3+ 每个清理阶段独立隔离
	s.runPhase(item.Pid, "save records", func() error {
		if err := s.db.Where("item_id = ?", item.ID).Delete(&models.SaveRecord{}).Error; err != nil {
			return err
		}
		return s.indexes.RemoveItem(item.Pid, models.IndexKindSaved)
	})

	s.runPhase(item.Pid, "vote records", func() error {
		if err := s.db.Where("item_id = ?", item.ID).Delete(&models.VoteRecord{}).Error; err != nil {
			return err
		}
		return s.indexes.RemoveItem(item.Pid, models.IndexKindUp, models.IndexKindDown)
	})

	s.runPhase(item.Pid, "comments", func() error {
		// 两层级联：先回复后顶层
		var topIDs []uint
		if err := s.db.Model(&models.Comment{}).
			Where("item_id = ? AND parent_id IS NULL", item.ID).
			Pluck("id", &topIDs).Error; err != nil {
			return err
		}
		if len(topIDs) > 0 {
			if err := s.db.Where("parent_id IN ?", topIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		return s.db.Where("item_id = ?", item.ID).Delete(&models.Comment{}).Error
	})

	s.runPhase(item.Pid, "reports", func() error {
		return s.db.Where("item_id = ?", item.ID).Delete(&models.Report{}).Error
	})

	// 7. 对象存储清理在主事务之外，失败仅记录
	if item.BlobKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(item.BlobKey); err != nil {
			log.Printf("%s: deleteItem %s: blob %q cleanup failed: %v",
				CodeStorageCleanup, item.Pid, item.BlobKey, err)
		}
	}

	// 8. 失效可能还在提供该条目的缓存
	utils.GetCache().Delete("item:detail:" + item.Pid)
	utils.GetCache().InvalidateTag(TagItemLists)

	return nil
}

func (s *DeletionService) runPhase(pid, name string, fn func() error) {
	if err := fn(); err != nil {
		log.Printf("deleteItem %s: cleanup phase %q failed: %v", pid, name, err)
	}
}
