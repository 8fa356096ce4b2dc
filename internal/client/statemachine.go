package client

import (
	"errors"
	"log"
	"sync"
	"uolink/internal/models"
)

// ControlState 单个互动控件（某条目的投票钮/收藏钮）的状态机
// idle -> pending -> committed | reverted
type ControlState int

const (
	StateIdle ControlState = iota
	StatePending
	StateCommitted
	StateReverted
)

func (s ControlState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateReverted:
		return "reverted"
	default:
		return "idle"
	}
}

// 控件类型
const (
	ControlVote = "vote"
	ControlSave = "save"
)

// ErrPending 同一控件已有未完成的操作时拒绝重入
var ErrPending = errors.New("operation already pending for this control")

// ItemView 客户端眼中一个条目的互动状态，乐观渲染的对象
type ItemView struct {
	Upvotes          int
	Downvotes        int
	Saves            int
	CredibilityScore int
	UserVote         string // "up" / "down" / ""
	Saved            bool
}

type controlKey struct {
	itemID string
	name   string
}

type control struct {
	state   ControlState
	gen     int // Detach 后用来丢弃迟到的响应
	lastErr error
	done    chan struct{}
}

// Controller 乐观状态机
// 用户操作立即用与服务端相同的 toggle/swap 逻辑改本地状态并进入 pending，
// 成功后用权威响应覆盖并落盘缓存，失败则原子回退到操作前快照
type Controller struct {
	api    API
	cache  *IndexCache
	userID uint

	mu       sync.Mutex
	items    map[string]*ItemView
	controls map[controlKey]*control
	index    *models.UserIndex
}

func NewController(api API, cache *IndexCache, userID uint) *Controller {
	return &Controller{
		api:      api,
		cache:    cache,
		userID:   userID,
		items:    make(map[string]*ItemView),
		controls: make(map[controlKey]*control),
		index:    models.NewUserIndex(),
	}
}

// Seed 用服务端列表/详情数据登记条目的当前状态
func (c *Controller) Seed(itemID string, view ItemView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := view
	c.items[itemID] = &v
}

// View 当前（可能是乐观的）条目状态
func (c *Controller) View(itemID string) (ItemView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[itemID]
	if !ok {
		return ItemView{}, false
	}
	return *v, true
}

// State 查询某控件的状态机状态
func (c *Controller) State(itemID, name string) ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctrl, ok := c.controls[controlKey{itemID, name}]; ok {
		return ctrl.state
	}
	return StateIdle
}

// LastError 上一次失败的瞬时错误，下一次操作自动清除
func (c *Controller) LastError(itemID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctrl, ok := c.controls[controlKey{itemID, name}]; ok {
		return ctrl.lastErr
	}
	return nil
}

// Wait 阻塞到该控件当前的在途操作完成（测试同步用）
func (c *Controller) Wait(itemID, name string) {
	c.mu.Lock()
	ctrl, ok := c.controls[controlKey{itemID, name}]
	var done chan struct{}
	if ok && ctrl.done != nil {
		done = ctrl.done
	}
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// PressVote 点击投票钮：乐观应用 -> pending -> 提交/回退
func (c *Controller) PressVote(itemID, voteType string) error {
	c.mu.Lock()
	view, ok := c.items[itemID]
	if !ok {
		c.mu.Unlock()
		return errors.New("unknown item: " + itemID)
	}
	key := controlKey{itemID, ControlVote}
	ctrl := c.ensureControlLocked(key)
	if ctrl.state == StatePending {
		c.mu.Unlock()
		return ErrPending
	}
	ctrl.lastErr = nil

	// 操作前快照，失败时整体回退
	snapshot := *view
	indexSnapshot := c.copyIndexLocked()

	// 与服务端完全相同的推演
	next, dUp, dDown := models.ApplyVote(view.UserVote, voteType)
	view.UserVote = next
	view.Upvotes = clamp(view.Upvotes + dUp)
	view.Downvotes = clamp(view.Downvotes + dDown)
	view.CredibilityScore = view.Upvotes - view.Downvotes
	c.applyVoteToIndexLocked(itemID, next)

	ctrl.state = StatePending
	ctrl.done = make(chan struct{})
	gen := ctrl.gen
	done := ctrl.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		result, err := c.api.CastVote(itemID, voteType)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ctrl.gen != gen {
			// 界面已卸载，丢弃响应
			return
		}
		if err != nil {
			*view = snapshot
			c.index = indexSnapshot
			ctrl.state = StateReverted
			ctrl.lastErr = err
			return
		}
		// 权威响应覆盖乐观状态
		view.Upvotes = result.Upvotes
		view.Downvotes = result.Downvotes
		view.CredibilityScore = result.CredibilityScore
		view.UserVote = models.VoteNone
		if result.UserVote != nil {
			view.UserVote = *result.UserVote
		}
		c.applyVoteToIndexLocked(itemID, view.UserVote)
		ctrl.state = StateCommitted
		c.persistIndexLocked()
	}()
	return nil
}

// PressSave 点击收藏钮
func (c *Controller) PressSave(itemID string) error {
	c.mu.Lock()
	view, ok := c.items[itemID]
	if !ok {
		c.mu.Unlock()
		return errors.New("unknown item: " + itemID)
	}
	key := controlKey{itemID, ControlSave}
	ctrl := c.ensureControlLocked(key)
	if ctrl.state == StatePending {
		c.mu.Unlock()
		return ErrPending
	}
	ctrl.lastErr = nil

	snapshot := *view
	indexSnapshot := c.copyIndexLocked()

	view.Saved = !view.Saved
	if view.Saved {
		view.Saves++
		c.index.Saved = models.AddToSet(c.index.Saved, itemID)
	} else {
		view.Saves = clamp(view.Saves - 1)
		c.index.Saved = models.RemoveFromSet(c.index.Saved, itemID)
	}

	ctrl.state = StatePending
	ctrl.done = make(chan struct{})
	gen := ctrl.gen
	done := ctrl.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		result, err := c.api.ToggleSave(itemID)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ctrl.gen != gen {
			return
		}
		if err != nil {
			*view = snapshot
			c.index = indexSnapshot
			ctrl.state = StateReverted
			ctrl.lastErr = err
			return
		}
		view.Saves = result.Saves
		view.Saved = result.Saved
		if result.Saved {
			c.index.Saved = models.AddToSet(c.index.Saved, itemID)
		} else {
			c.index.Saved = models.RemoveFromSet(c.index.Saved, itemID)
		}
		ctrl.state = StateCommitted
		c.persistIndexLocked()
	}()
	return nil
}

// LoadCachedIndex 启动时读本地缓存快照（可能是旧的）
func (c *Controller) LoadCachedIndex() *models.UserIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache != nil {
		if idx, err := c.cache.Get(c.userID); err == nil && idx != nil {
			c.index = idx
		}
	}
	return c.copyIndexLocked()
}

// SyncIndex 拉权威快照并整体覆盖本地缓存
func (c *Controller) SyncIndex() (*models.UserIndex, error) {
	idx, err := c.api.FetchIndex()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = idx
	c.persistIndexLocked()
	return c.copyIndexLocked(), nil
}

// Index 当前内存中的索引快照
func (c *Controller) Index() *models.UserIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyIndexLocked()
}

// Detach 界面卸载：在途请求继续完成，但响应不再应用到本地状态
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ctrl := range c.controls {
		ctrl.gen++
		if ctrl.state == StatePending {
			ctrl.state = StateIdle
		}
	}
}

func (c *Controller) ensureControlLocked(key controlKey) *control {
	ctrl, ok := c.controls[key]
	if !ok {
		ctrl = &control{state: StateIdle}
		c.controls[key] = ctrl
	}
	return ctrl
}

func (c *Controller) applyVoteToIndexLocked(itemID, vote string) {
	c.index.Up = models.RemoveFromSet(c.index.Up, itemID)
	c.index.Down = models.RemoveFromSet(c.index.Down, itemID)
	switch vote {
	case models.VoteUp:
		c.index.Up = models.AddToSet(c.index.Up, itemID)
	case models.VoteDown:
		c.index.Down = models.AddToSet(c.index.Down, itemID)
	}
}

func (c *Controller) copyIndexLocked() *models.UserIndex {
	out := models.NewUserIndex()
	out.Up = append(out.Up, c.index.Up...)
	out.Down = append(out.Down, c.index.Down...)
	out.Saved = append(out.Saved, c.index.Saved...)
	return out
}

func (c *Controller) persistIndexLocked() {
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(c.userID, c.index); err != nil {
		log.Printf("index cache write failed for user %d: %v", c.userID, err)
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
