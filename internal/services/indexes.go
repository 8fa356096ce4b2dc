package services

import (
	"uolink/internal/models"

	"gorm.io/gorm"
)

// IndexService 反向索引维护 - 按用户镜像投了什么票、收藏了什么
// 所有写入都是集合语义（幂等），重复应用同一最终状态是 no-op。
// 这里的失败只记录，永远不回滚主台账写入
type IndexService struct {
	db *gorm.DB
}

func NewIndexService(db *gorm.DB) *IndexService {
	return &IndexService{db: db}
}

// SetVoteIndex 把用户对某条目的投票终态同步进索引
// up/down 两个集合互斥，终态为 none 时两个都清掉
func (s *IndexService) SetVoteIndex(userID uint, itemPid string, vote string) error {
	switch vote {
	case models.VoteUp:
		if err := s.ensure(userID, itemPid, models.IndexKindUp); err != nil {
			return err
		}
		return s.remove(userID, itemPid, models.IndexKindDown)
	case models.VoteDown:
		if err := s.ensure(userID, itemPid, models.IndexKindDown); err != nil {
			return err
		}
		return s.remove(userID, itemPid, models.IndexKindUp)
	default:
		if err := s.remove(userID, itemPid, models.IndexKindUp); err != nil {
			return err
		}
		return s.remove(userID, itemPid, models.IndexKindDown)
	}
}

// SetSaveIndex 同步收藏集合
func (s *IndexService) SetSaveIndex(userID uint, itemPid string, saved bool) error {
	if saved {
		return s.ensure(userID, itemPid, models.IndexKindSaved)
	}
	return s.remove(userID, itemPid, models.IndexKindSaved)
}

// FetchIndex 读取一个用户的权威反向索引快照
func (s *IndexService) FetchIndex(userID uint) (*models.UserIndex, error) {
	var entries []models.IndexEntry
	if err := s.db.Where("user_id = ?", userID).Find(&entries).Error; err != nil {
		return nil, err
	}
	idx := models.NewUserIndex()
	for _, e := range entries {
		switch e.Kind {
		case models.IndexKindUp:
			idx.Up = append(idx.Up, e.ItemPid)
		case models.IndexKindDown:
			idx.Down = append(idx.Down, e.ItemPid)
		case models.IndexKindSaved:
			idx.Saved = append(idx.Saved, e.ItemPid)
		}
	}
	return idx, nil
}

// RemoveItem 把某条目从所有用户的索引里清掉（级联删除用）
func (s *IndexService) RemoveItem(itemPid string, kinds ...string) error {
	q := s.db.Where("item_pid = ?", itemPid)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	return q.Delete(&models.IndexEntry{}).Error
}

// ensure 集合添加，唯一索引 + FirstOrCreate 保证幂等
func (s *IndexService) ensure(userID uint, itemPid, kind string) error {
	entry := models.IndexEntry{UserID: userID, ItemPid: itemPid, Kind: kind}
	return s.db.Where(models.IndexEntry{UserID: userID, ItemPid: itemPid, Kind: kind}).
		FirstOrCreate(&entry).Error
}

// remove 集合移除，条目不存在时同样成功
func (s *IndexService) remove(userID uint, itemPid, kind string) error {
	return s.db.Where("user_id = ? AND item_pid = ? AND kind = ?", userID, itemPid, kind).
		Delete(&models.IndexEntry{}).Error
}
