package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"uolink/internal/models"

	"github.com/dgraph-io/badger/v4"
)

// IndexCache 客户端本地持久化的反向索引快照
// 启动时先读它（可能是旧的），权威拉取回来后整体覆盖
type IndexCache struct {
	db *badger.DB
}

// OpenIndexCache 打开指定目录下的持久化缓存
func OpenIndexCache(path string) (*IndexCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &IndexCache{db: db}, nil
}

// OpenInMemoryIndexCache 内存模式，测试用
func OpenInMemoryIndexCache() (*IndexCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &IndexCache{db: db}, nil
}

func (c *IndexCache) Close() error {
	return c.db.Close()
}

func cacheKey(userID uint) []byte {
	return []byte(fmt.Sprintf("index:%d", userID))
}

// Get 读取快照，无缓存时返回 (nil, nil)
func (c *IndexCache) Get(userID uint) (*models.UserIndex, error) {
	var idx *models.UserIndex
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			idx = models.NewUserIndex()
			return json.Unmarshal(val, idx)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Put 用权威快照整体覆盖
func (c *IndexCache) Put(userID uint, idx *models.UserIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(userID), data)
	})
}

// Invalidate 清掉某用户的快照
func (c *IndexCache) Invalidate(userID uint) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(cacheKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
