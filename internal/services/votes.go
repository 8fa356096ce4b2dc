package services

import (
	"errors"
	"log"
	"strings"
	"time"
	"uolink/internal/models"
	"uolink/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 事务冲突重试上限，超过后以 INTERNAL_ERROR 上抛
const maxTxAttempts = 3

// VoteResult 投票操作的权威返回，客户端用它覆盖乐观状态
type VoteResult struct {
	Upvotes          int     `json:"upvotes"`
	Downvotes        int     `json:"downvotes"`
	UserVote         *string `json:"userVote"` // "up" / "down" / null(已撤回)
	CredibilityScore int     `json:"credibilityScore"`
}

// SaveResult 收藏操作的权威返回
type SaveResult struct {
	Saves int  `json:"saves"`
	Saved bool `json:"saved"`
}

// VoteService 投票事务处理器 - 台账的唯一写入口
// 计数器与投票记录在同一个事务里原子变更，外部读不到中间状态
type VoteService struct {
	db         *gorm.DB
	indexes    *IndexService
	trending   *TrendingService
	reputation *ReputationService
}

func NewVoteService(db *gorm.DB, indexes *IndexService, trending *TrendingService, reputation *ReputationService) *VoteService {
	return &VoteService{db: db, indexes: indexes, trending: trending, reputation: reputation}
}

// CastVote 对条目投一票，按已有投票记录分三种情形：
// 无记录 -> 新投；同向 -> toggle-off 撤回；反向 -> 原子换向
func (s *VoteService) CastVote(itemPid string, userID uint, voteType string) (*VoteResult, error) {
	if userID == 0 {
		return nil, NewError(CodeNotAuthenticated, "caller identity required")
	}
	if voteType != models.VoteUp && voteType != models.VoteDown {
		return nil, NewError(CodeValidation, "vote_type must be 'up' or 'down'")
	}

	var (
		result    *VoteResult
		item      models.Item
		credDelta int
	)
	err := s.withRetry(func(tx *gorm.DB) error {
		// 锁住台账行，串行化同一条目上的并发写入
		if err := lockForUpdate(tx).Where("pid = ?", itemPid).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(CodeNotFound, "item not found")
			}
			return err
		}

		// 查已有投票记录
		current := models.VoteNone
		var existing models.VoteRecord
		err := tx.Where("user_id = ? AND item_id = ?", userID, item.ID).First(&existing).Error
		if err == nil {
			current = existing.VoteType()
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		next, dUp, dDown := models.ApplyVote(current, voteType)

		// 记录变更与计数变更在同一事务内完成
		switch {
		case next == models.VoteNone:
			// 撤回：删除记录而不是置零
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
		case current == models.VoteNone:
			record := models.VoteRecord{UserID: userID, ItemID: item.ID, Value: models.VoteValue(next)}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		default:
			// 换向：同一行原地改 Value，外部永远看不到"先删后建"的两步
			if err := tx.Model(&existing).Update("value", models.VoteValue(next)).Error; err != nil {
				return err
			}
		}

		// 防御性下限：计数永不为负
		up := clampZero(item.Upvotes + dUp)
		down := clampZero(item.Downvotes + dDown)
		cred := utils.Credibility(up, down)
		credDelta = cred - utils.Credibility(item.Upvotes, item.Downvotes)
		now := time.Now()
		if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"upvotes":             up,
			"downvotes":           down,
			"credibility_score":   cred,
			"last_interaction_at": now,
		}).Error; err != nil {
			return err
		}

		item.Upvotes = up
		item.Downvotes = down
		item.CredibilityScore = cred
		item.LastInteractionAt = now

		var userVote *string
		if next != models.VoteNone {
			v := next
			userVote = &v
		}
		result = &VoteResult{Upvotes: up, Downvotes: down, UserVote: userVote, CredibilityScore: cred}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 提交后的副作用全部隔离：索引落后可以自愈，主写入不能被拖垮
	vote := models.VoteNone
	if result.UserVote != nil {
		vote = *result.UserVote
	}
	if err := s.indexes.SetVoteIndex(userID, item.Pid, vote); err != nil {
		log.Printf("castVote %s: index update failed for user %d: %v", item.Pid, userID, err)
	}
	if s.trending != nil {
		s.trending.Schedule(item.ID)
	}
	if s.reputation != nil && item.OwnerID != userID {
		s.reputation.ApplyVoteDelta(item.OwnerID, vote, credDelta)
	}
	utils.GetCache().Delete("item:detail:" + item.Pid)
	utils.GetCache().InvalidateTag(TagItemLists)

	return result, nil
}

// withRetry 在有界次数内重试事务冲突，其余错误直接上抛
func (s *VoteService) withRetry(fn func(tx *gorm.DB) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.db.Transaction(fn)
		if err == nil {
			return nil
		}
		if !isContention(err) {
			return err
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}
	return WrapError(CodeInternal, "vote transaction kept conflicting", lastErr)
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// lockForUpdate 在支持的方言上加 SELECT ... FOR UPDATE 行锁
// SQLite 没有行锁语法，靠其库级写串行化保证同样的顺序
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// isContention 识别可重试的事务冲突：死锁、序列化失败、SQLite busy、
// 以及双击竞态下的唯一索引冲突（重试后会走 toggle 分支）
func isContention(err error) bool {
	if err == nil {
		return false
	}
	// 业务错误（NOT_FOUND 等）不重试
	var ee *EngineError
	if errors.As(err, &ee) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"deadlock",
		"could not serialize",
		"40001",
		"40p01",
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"duplicate key",
		"unique constraint",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
