package services

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// BlobStore 对象存储协作者 - 按 key 删除已上传的文档文件
// 上传本身在引擎范围之外，这里只消费删除接口
// 需要的环境变量: BLOB_STORE_ENDPOINT, BLOB_STORE_BUCKET, BLOB_STORE_TOKEN
type BlobStore struct {
	endpoint string
	bucket   string
	token    string
	client   *http.Client
}

// NewBlobStoreFromEnv 从环境变量构建对象存储客户端
// 未配置时返回 nil，删除流程按"无文件需要清理"处理
func NewBlobStoreFromEnv() *BlobStore {
	endpoint := strings.TrimRight(os.Getenv("BLOB_STORE_ENDPOINT"), "/")
	bucket := os.Getenv("BLOB_STORE_BUCKET")
	if endpoint == "" || bucket == "" {
		log.Println("Blob store not configured, skipping blob cleanup on delete")
		return nil
	}
	return &BlobStore{
		endpoint: endpoint,
		bucket:   bucket,
		token:    os.Getenv("BLOB_STORE_TOKEN"),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Delete 删除指定 key 的对象，对象已不存在 (404) 视为成功
func (b *BlobStore) Delete(key string) error {
	target := fmt.Sprintf("%s/%s/%s", b.endpoint, b.bucket, url.PathEscape(key))
	req, err := http.NewRequest(http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("删除对象失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("删除对象失败: 状态码 %d", resp.StatusCode)
	}
	return nil
}
