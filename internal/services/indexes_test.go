package services

import (
	"testing"
	"uolink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSetIsIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	user := createUser(t, gdb, "indexed")
	indexes := NewIndexService(gdb)

	// 同一终态应用两次是 no-op
	require.NoError(t, indexes.SetVoteIndex(user.ID, "item-1", models.VoteUp))
	require.NoError(t, indexes.SetVoteIndex(user.ID, "item-1", models.VoteUp))
	require.NoError(t, indexes.SetSaveIndex(user.ID, "item-1", true))
	require.NoError(t, indexes.SetSaveIndex(user.ID, "item-1", true))

	var count int64
	gdb.Model(&models.IndexEntry{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 2, count)

	idx, err := indexes.FetchIndex(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1"}, idx.Up)
	assert.Equal(t, []string{"item-1"}, idx.Saved)
	assert.Empty(t, idx.Down)

	// 移除同样幂等
	require.NoError(t, indexes.SetVoteIndex(user.ID, "item-1", models.VoteNone))
	require.NoError(t, indexes.SetVoteIndex(user.ID, "item-1", models.VoteNone))
	idx, err = indexes.FetchIndex(user.ID)
	require.NoError(t, err)
	assert.Empty(t, idx.Up)
	assert.Equal(t, []string{"item-1"}, idx.Saved)
}

func TestFetchIndexEmptySets(t *testing.T) {
	gdb := newTestDB(t)
	user := createUser(t, gdb, "fresh")
	indexes := NewIndexService(gdb)

	idx, err := indexes.FetchIndex(user.ID)
	require.NoError(t, err)
	// 空集合序列化为 [] 而不是 null
	assert.NotNil(t, idx.Up)
	assert.NotNil(t, idx.Down)
	assert.NotNil(t, idx.Saved)
}

func TestRepairItemCounters(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "voter")
	item := createItem(t, gdb, owner)
	svc := newVoteService(gdb)

	_, err := svc.CastVote(item.Pid, voter.ID, models.VoteUp)
	require.NoError(t, err)

	// 人为制造漂移（模拟无约束存储里的部分写入）
	require.NoError(t, gdb.Model(&models.Item{}).Where("id = ?", item.ID).
		Updates(map[string]interface{}{"upvotes": 7, "downvotes": 2}).Error)

	repair := NewRepairService(gdb, NewIndexService(gdb))
	fixed, err := repair.RepairItemCounters()
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	got := reloadItem(t, gdb, item.ID)
	assert.Equal(t, 1, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)
	assert.Equal(t, 1, got.CredibilityScore)

	// 已一致时再跑是 no-op
	fixed, err = repair.RepairItemCounters()
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}

func TestRebuildUserIndex(t *testing.T) {
	gdb := newTestDB(t)
	owner := createUser(t, gdb, "owner")
	voter := createUser(t, gdb, "voter")
	itemA := createItem(t, gdb, owner)
	itemB := createItem(t, gdb, owner)
	indexes := NewIndexService(gdb)
	svc := NewVoteService(gdb, indexes, nil, nil)

	_, err := svc.CastVote(itemA.Pid, voter.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = svc.CastVote(itemB.Pid, voter.ID, models.VoteDown)
	require.NoError(t, err)
	_, err = svc.ToggleSave(itemB.Pid, voter.ID)
	require.NoError(t, err)

	// 模拟索引写入丢失
	require.NoError(t, gdb.Where("user_id = ?", voter.ID).Delete(&models.IndexEntry{}).Error)

	repair := NewRepairService(gdb, indexes)
	require.NoError(t, repair.RebuildUserIndex(voter.ID))

	idx, err := indexes.FetchIndex(voter.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{itemA.Pid}, idx.Up)
	assert.Equal(t, []string{itemB.Pid}, idx.Down)
	assert.Equal(t, []string{itemB.Pid}, idx.Saved)
}
