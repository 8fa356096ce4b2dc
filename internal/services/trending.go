package services

import (
	"log"
	"sync"
	"time"
	"uolink/internal/models"
	"uolink/internal/utils"

	"gorm.io/gorm"
)

// TrendingService 提供异步计算和更新条目热度分的服务
// 热度分只影响列表排序，允许比台账晚到，所以不占用投票事务
type TrendingService struct {
	db      *gorm.DB
	queue   chan uint // 待更新的条目 ID 队列
	pending map[uint]bool
	mu      sync.Mutex
}

func NewTrendingService(db *gorm.DB) *TrendingService {
	s := &TrendingService{
		db:      db,
		queue:   make(chan uint, 1000), // 缓冲队列，防止阻塞
		pending: make(map[uint]bool),
	}
	// 启动后台 worker
	go s.worker()
	return s
}

// Schedule 将条目加入更新队列（异步）
// 使用去重机制避免短时间内重复计算同一条目
func (s *TrendingService) Schedule(itemID uint) {
	s.mu.Lock()
	if s.pending[itemID] {
		// 已在队列中，跳过
		s.mu.Unlock()
		return
	}
	s.pending[itemID] = true
	s.mu.Unlock()

	// 非阻塞发送到队列
	select {
	case s.queue <- itemID:
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, itemID)
		s.mu.Unlock()
		log.Printf("trending queue full, skipping item %d", itemID)
	}
}

// worker 后台批量处理队列中的更新请求
func (s *TrendingService) worker() {
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case itemID := <-s.queue:
			batch = append(batch, itemID)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *TrendingService) processBatch(itemIDs []uint) {
	for _, itemID := range itemIDs {
		s.UpdateItemTrending(itemID)

		s.mu.Lock()
		delete(s.pending, itemID)
		s.mu.Unlock()
	}
}

// UpdateItemTrending 计算并写回单个条目的热度分
func (s *TrendingService) UpdateItemTrending(itemID uint) {
	var item models.Item
	if err := s.db.First(&item, itemID).Error; err != nil {
		// 可能刚被级联删除，不算错误
		return
	}

	score := utils.Trending(item.CredibilityScore, item.LastInteractionAt, time.Now())
	if err := s.db.Model(&item).UpdateColumn("trending_score", score).Error; err != nil {
		log.Printf("trending update failed for item %d: %v", itemID, err)
	}
}

// StartScheduledSweep 启动定时热度重算（每天凌晨 3 点执行）
// 新鲜度加成随时间衰减，即使没有新互动分数也要往下掉
func (s *TrendingService) StartScheduledSweep() {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			time.Sleep(time.Until(next))

			log.Println("starting scheduled trending sweep...")
			s.sweep()
			log.Println("scheduled trending sweep done")
		}
	}()
}

// sweep 重算最近 7 天和当前热度最高的 30 个条目（边遍历边去重）
func (s *TrendingService) sweep() {
	processed := make(map[uint]bool)
	count := 0

	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	var recent []models.Item
	s.db.Where("last_interaction_at >= ?", sevenDaysAgo).Select("id").Find(&recent)
	for _, it := range recent {
		s.UpdateItemTrending(it.ID)
		processed[it.ID] = true
		count++
	}

	var top []models.Item
	s.db.Order("trending_score DESC").Limit(30).Select("id").Find(&top)
	for _, it := range top {
		if !processed[it.ID] {
			s.UpdateItemTrending(it.ID)
			count++
		}
	}

	log.Printf("trending sweep updated %d items", count)
}
