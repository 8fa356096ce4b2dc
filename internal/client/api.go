package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"uolink/internal/models"
	"uolink/internal/services"
)

// TokenSource 身份提供方（外部协作者）暴露的 bearer token 获取器
type TokenSource func() (string, error)

// API 引擎服务边界，状态机通过它和服务端对话
type API interface {
	CastVote(itemID, voteType string) (*services.VoteResult, error)
	ToggleSave(itemID string) (*services.SaveResult, error)
	FetchIndex() (*models.UserIndex, error)
}

// HTTPClient API 的 HTTP 实现
type HTTPClient struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
}

func NewHTTPClient(baseURL string, tokens TokenSource) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HTTPClient) do(method, path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, h.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := h.tokens()
	if err != nil {
		return services.WrapError(services.CodeNotAuthenticated, "token source failed", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 服务端返回 {error, message}，还原成引擎错误
		var remote struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil || remote.Error == "" {
			return services.NewError(services.CodeInternal,
				fmt.Sprintf("unexpected status %d", resp.StatusCode))
		}
		return services.NewError(remote.Error, remote.Message)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (h *HTTPClient) CastVote(itemID, voteType string) (*services.VoteResult, error) {
	var result services.VoteResult
	err := h.do(http.MethodPost, "/api/items/"+itemID+"/vote",
		map[string]string{"vote_type": voteType}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *HTTPClient) ToggleSave(itemID string) (*services.SaveResult, error) {
	var result services.SaveResult
	err := h.do(http.MethodPost, "/api/items/"+itemID+"/save", nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *HTTPClient) FetchIndex() (*models.UserIndex, error) {
	idx := models.NewUserIndex()
	if err := h.do(http.MethodGet, "/api/me/index", nil, idx); err != nil {
		return nil, err
	}
	return idx, nil
}
