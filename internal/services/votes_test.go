package services

import (
	"fmt"
	"sync"
	"testing"
	"time"
	"uolink/internal/db"
	"uolink/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 内存 SQLite，单连接保证写串行化（与生产 Postgres 的行锁等效）
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{
		Username: name,
		Email:    name + "@example.com",
		APIToken: name + "-token",
	}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}

func createItem(t *testing.T, gdb *gorm.DB, owner *models.User) *models.Item {
	t.Helper()
	item := models.Item{
		Pid:               uuid.NewString(),
		OwnerID:           owner.ID,
		Title:             "Linear Algebra Notes",
		BlobKey:           "docs/" + uuid.NewString(),
		LastInteractionAt: time.Now(),
	}
	require.NoError(t, gdb.Create(&item).Error)
	return &item
}

func newVoteService(gdb *gorm.DB) *VoteService {
	return NewVoteService(gdb, NewIndexService(gdb), nil, nil)
}

func reloadItem(t *testing.T, gdb *gorm.DB, id uint) *models.Item {
	t.Helper()
	var item models.Item
	require.NoError(t, gdb.First(&item, id).Error)
	return &item
}

func TestCastVoteScenarioA(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "user1")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	// 第一次点赞
	res, err := svc.CastVote(item.Pid, voter.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteUp, *res.UserVote)
	assert.Equal(t, 1, res.CredibilityScore)

	// 再点一次同方向 = toggle-off
	res, err = svc.CastVote(item.Pid, voter.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	assert.Nil(t, res.UserVote)
	assert.Equal(t, 0, res.CredibilityScore)

	// 记录被删除而不是置零
	var count int64
	gdb.Model(&models.VoteRecord{}).Where("user_id = ? AND item_id = ?", voter.ID, item.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestCastVoteScenarioB(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	user1 := createUser(t, gdb, "user1")
	user2 := createUser(t, gdb, "user2")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	_, err := svc.CastVote(item.Pid, user1.ID, models.VoteUp)
	require.NoError(t, err)
	res, err := svc.CastVote(item.Pid, user2.ID, models.VoteDown)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	assert.Equal(t, 0, res.CredibilityScore)
}

func TestCastVoteSwapIsAtomicSingleRecord(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "voter")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	_, err := svc.CastVote(item.Pid, voter.ID, models.VoteUp)
	require.NoError(t, err)
	res, err := svc.CastVote(item.Pid, voter.ID, models.VoteDown)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteDown, *res.UserVote)

	// 任何时刻每个 (用户, 条目) 最多一条记录
	var count int64
	gdb.Model(&models.VoteRecord{}).Where("user_id = ? AND item_id = ?", voter.ID, item.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestCastVotePathIndependence(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "voter")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	// up -> down -> up 等价于直接 up 一次
	for _, v := range []string{models.VoteUp, models.VoteDown, models.VoteUp} {
		_, err := svc.CastVote(item.Pid, voter.ID, v)
		require.NoError(t, err)
	}

	got := reloadItem(t, gdb, item.ID)
	assert.Equal(t, 1, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)
	assert.Equal(t, 1, got.CredibilityScore)
}

// 计数器必须精确等于记录行数，任何完成的操作序列之后都成立
func TestCounterMatchesRecordsAfterMixedSequence(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	voters := make([]*models.User, 5)
	for i := range voters {
		voters[i] = createUser(t, gdb, fmt.Sprintf("voter%d", i))
	}

	sequence := []struct {
		voter int
		vote  string
	}{
		{0, models.VoteUp}, {1, models.VoteUp}, {2, models.VoteDown},
		{0, models.VoteDown}, // swap
		{1, models.VoteUp},   // toggle-off
		{3, models.VoteUp}, {4, models.VoteDown},
		{4, models.VoteDown}, // toggle-off
	}
	for _, step := range sequence {
		_, err := svc.CastVote(item.Pid, voters[step.voter].ID, step.vote)
		require.NoError(t, err)
	}

	got := reloadItem(t, gdb, item.ID)
	var upRecords, downRecords int64
	gdb.Model(&models.VoteRecord{}).Where("item_id = ? AND value = 1", item.ID).Count(&upRecords)
	gdb.Model(&models.VoteRecord{}).Where("item_id = ? AND value = -1", item.ID).Count(&downRecords)

	assert.EqualValues(t, got.Upvotes, upRecords)
	assert.EqualValues(t, got.Downvotes, downRecords)
	assert.Equal(t, got.Upvotes-got.Downvotes, got.CredibilityScore)
}

// N 个不同用户并发点赞，不允许丢更新
func TestConcurrentUpvotesNoLostUpdates(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	const n = 8
	voters := make([]*models.User, n)
	for i := range voters {
		voters[i] = createUser(t, gdb, fmt.Sprintf("concurrent%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			if _, err := svc.CastVote(item.Pid, userID, models.VoteUp); err != nil {
				errs <- err
			}
		}(voters[i].ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent vote failed: %v", err)
	}

	got := reloadItem(t, gdb, item.ID)
	assert.Equal(t, n, got.Upvotes)

	var records int64
	gdb.Model(&models.VoteRecord{}).Where("item_id = ? AND value = 1", item.ID).Count(&records)
	assert.EqualValues(t, n, records)
}

func TestCastVoteValidation(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "voter")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	_, err := svc.CastVote(item.Pid, voter.ID, "sideways")
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = svc.CastVote(item.Pid, 0, models.VoteUp)
	assert.Equal(t, CodeNotAuthenticated, CodeOf(err))

	_, err = svc.CastVote("no-such-item", voter.ID, models.VoteUp)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestCastVoteUpdatesReverseIndex(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "voter")
	item := createItem(t, gdb, owner)
	indexes := NewIndexService(gdb)
	svc := NewVoteService(gdb, indexes, nil, nil)

	_, err := svc.CastVote(item.Pid, voter.ID, models.VoteUp)
	require.NoError(t, err)
	idx, err := indexes.FetchIndex(voter.ID)
	require.NoError(t, err)
	assert.True(t, models.Contains(idx.Up, item.Pid))
	assert.False(t, models.Contains(idx.Down, item.Pid))

	// 换向后索引跟着换
	_, err = svc.CastVote(item.Pid, voter.ID, models.VoteDown)
	require.NoError(t, err)
	idx, err = indexes.FetchIndex(voter.ID)
	require.NoError(t, err)
	assert.False(t, models.Contains(idx.Up, item.Pid))
	assert.True(t, models.Contains(idx.Down, item.Pid))

	// 撤回后两边都清掉
	_, err = svc.CastVote(item.Pid, voter.ID, models.VoteDown)
	require.NoError(t, err)
	idx, err = indexes.FetchIndex(voter.ID)
	require.NoError(t, err)
	assert.False(t, models.Contains(idx.Up, item.Pid))
	assert.False(t, models.Contains(idx.Down, item.Pid))
}

func TestToggleSave(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	user := createUser(t, gdb, "saver")
	item := createItem(t, gdb, owner)
	indexes := NewIndexService(gdb)
	svc := NewVoteService(gdb, indexes, nil, nil)

	res, err := svc.ToggleSave(item.Pid, user.ID)
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Equal(t, 1, res.Saves)

	idx, err := indexes.FetchIndex(user.ID)
	require.NoError(t, err)
	assert.True(t, models.Contains(idx.Saved, item.Pid))

	res, err = svc.ToggleSave(item.Pid, user.ID)
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Equal(t, 0, res.Saves)

	var count int64
	gdb.Model(&models.SaveRecord{}).Where("item_id = ?", item.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}
