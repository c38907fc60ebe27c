/*
 * @module client/postgrest_client
 * @description PostgREST HTTP客户端，提供Token管理、自动刷新与表查询
 * @architecture 适配器模式 - 封装PostgREST认证和HTTP请求
 * @documentReference DESIGN.md
 * @stateFlow Token获取 -> Token使用 -> Token刷新 -> 查询 -> 撤销
 * @rules 自动Token管理；未配置用户名时以匿名角色访问
 * @dependencies net/http, encoding/json, sync, time
 * @refs service/datasource/postgrest_source.go
 */

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PostgRESTClient PostgREST HTTP客户端
type PostgRESTClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	schema     string
	// Token管理
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	tokenMutex   sync.RWMutex

	// 自动刷新
	refreshTicker *time.Ticker
	stopRefresh   chan struct{}
	closeOnce     sync.Once

	// 统计信息
	stats *ClientStats
}

// ClientStats 客户端统计信息
type ClientStats struct {
	RequestCount    int64     `json:"request_count"`
	SuccessCount    int64     `json:"success_count"`
	ErrorCount      int64     `json:"error_count"`
	TokenRefreshed  int       `json:"token_refreshed"`
	LastTokenTime   time.Time `json:"last_token_time"`
	LastRequestTime time.Time `json:"last_request_time"`
	mutex           sync.RWMutex
}

// TokenResponse Token响应结构，刷新接口只在轮换时返回 refresh_token
type TokenResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	AccessExpiresIn  int    `json:"access_expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
	Username         string `json:"username"`
}

// PostgRESTConfig PostgREST客户端配置
type PostgRESTConfig struct {
	BaseURL         string        `json:"base_url"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Timeout         time.Duration `json:"timeout"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	Schema          string        `json:"schema"`
}

// NewPostgRESTClient 创建新的PostgREST客户端
func NewPostgRESTClient(config *PostgRESTConfig) *PostgRESTClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := &PostgRESTClient{
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		username: config.Username,
		password: config.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		stats:  &ClientStats{},
		schema: config.Schema,
	}

	// 设置默认刷新间隔（Token过期前5分钟刷新）
	refreshInterval := config.RefreshInterval
	if refreshInterval == 0 {
		refreshInterval = 55 * time.Minute
	}

	if client.username != "" {
		client.startTokenRefresh(refreshInterval)
	}

	return client
}

// Connect 建立连接并获取初始Token，未配置用户名时直接返回
func (c *PostgRESTClient) Connect(ctx context.Context) error {
	if c.username == "" {
		return nil
	}
	return c.getInitialToken(ctx)
}

// postRPC 调用 postgrest schema 下的认证函数
func (c *PostgRESTClient) postRPC(ctx context.Context, name string, payload interface{}, bearer string) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+name, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	// 设置必要的请求头
	req.Header.Set("Accept-Profile", "postgrest")
	req.Header.Set("Content-Profile", "postgrest")
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.httpClient.Do(req)
}

func decodeTokenResponse(resp *http.Response) (*TokenResponse, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("解析Token响应失败: %w", err)
	}
	if !tokenResp.Success {
		return nil, fmt.Errorf("服务器返回success=false: %s", tokenResp.Message)
	}
	return &tokenResp, nil
}

// getInitialToken 获取初始Token
func (c *PostgRESTClient) getInitialToken(ctx context.Context) error {
	resp, err := c.postRPC(ctx, "get_token", map[string]string{
		"username": c.username,
		"password": c.password,
	}, "")
	if err != nil {
		return fmt.Errorf("Token请求失败: %w", err)
	}

	tokenResp, err := decodeTokenResponse(resp)
	if err != nil {
		slog.Error("Token获取失败", "error", err)
		return fmt.Errorf("Token获取失败: %w", err)
	}

	// 更新Token信息
	c.tokenMutex.Lock()
	c.accessToken = tokenResp.AccessToken
	c.refreshToken = tokenResp.RefreshToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.AccessExpiresIn) * time.Second)
	c.tokenMutex.Unlock()

	c.stats.mutex.Lock()
	c.stats.LastTokenTime = time.Now()
	c.stats.mutex.Unlock()

	return nil
}

// refreshTokenIfNeeded 如果需要则刷新Token
func (c *PostgRESTClient) refreshTokenIfNeeded(ctx context.Context) error {
	c.tokenMutex.RLock()
	needRefresh := time.Now().Add(5 * time.Minute).After(c.tokenExpiry) // 提前5分钟刷新
	currentRefreshToken := c.refreshToken
	c.tokenMutex.RUnlock()

	if !needRefresh || currentRefreshToken == "" {
		return nil
	}

	return c.refreshAccessToken(ctx)
}

// refreshAccessToken 刷新访问Token
func (c *PostgRESTClient) refreshAccessToken(ctx context.Context) error {
	c.tokenMutex.RLock()
	currentRefreshToken := c.refreshToken
	c.tokenMutex.RUnlock()

	if currentRefreshToken == "" {
		return fmt.Errorf("没有可用的刷新Token")
	}

	resp, err := c.postRPC(ctx, "refresh_token", map[string]interface{}{
		"refresh_token":        currentRefreshToken,
		"rotate_refresh_token": true,
	}, "")
	if err != nil {
		return fmt.Errorf("刷新Token请求失败: %w", err)
	}

	refreshResp, err := decodeTokenResponse(resp)
	if err != nil {
		return fmt.Errorf("刷新Token失败: %w", err)
	}

	c.tokenMutex.Lock()
	c.accessToken = refreshResp.AccessToken
	// 只有在轮换时才更新refresh token
	if refreshResp.RefreshToken != "" {
		c.refreshToken = refreshResp.RefreshToken
	}
	c.tokenExpiry = time.Now().Add(time.Duration(refreshResp.AccessExpiresIn) * time.Second)
	c.tokenMutex.Unlock()

	c.stats.mutex.Lock()
	c.stats.TokenRefreshed++
	c.stats.LastTokenTime = time.Now()
	c.stats.mutex.Unlock()

	return nil
}

// startTokenRefresh 启动Token自动刷新
func (c *PostgRESTClient) startTokenRefresh(interval time.Duration) {
	c.refreshTicker = time.NewTicker(interval)
	c.stopRefresh = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.refreshTicker.C:
				ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
				if err := c.refreshTokenIfNeeded(ctx); err != nil {
					// 如果刷新失败，尝试重新获取Token
					if err := c.getInitialToken(ctx); err != nil {
						c.recordError()
					}
				}
				cancel()
			case <-c.stopRefresh:
				return
			}
		}
	}()
}

func (c *PostgRESTClient) recordError() {
	c.stats.mutex.Lock()
	c.stats.ErrorCount++
	c.stats.mutex.Unlock()
}

// MakeRequest 发起HTTP请求（带Token认证）
func (c *PostgRESTClient) MakeRequest(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	// 确保Token有效
	if err := c.refreshTokenIfNeeded(ctx); err != nil {
		return nil, fmt.Errorf("Token刷新失败: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	if accessToken := c.GetAccessToken(); accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	// 设置PostgREST必要的头
	if c.schema != "" {
		req.Header.Set("Accept-Profile", c.schema)
		if method != http.MethodGet && method != http.MethodHead {
			req.Header.Set("Content-Profile", c.schema)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	c.stats.mutex.Lock()
	c.stats.RequestCount++
	c.stats.LastRequestTime = time.Now()
	c.stats.mutex.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordError()
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}

	c.stats.mutex.Lock()
	if resp.StatusCode < 400 {
		c.stats.SuccessCount++
	} else {
		c.stats.ErrorCount++
	}
	c.stats.mutex.Unlock()

	return resp, nil
}

// QueryTable 查询表记录并解码到 out
func (c *PostgRESTClient) QueryTable(ctx context.Context, tableName string, query url.Values, out interface{}) error {
	path := "/" + tableName
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := c.MakeRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return fmt.Errorf("查询表 %s 失败: %w", tableName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("查询表 %s 失败，状态码: %d, 响应: %s", tableName, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析表 %s 响应失败: %w", tableName, err)
	}
	return nil
}

// Ping 检查 PostgREST 是否可用
func (c *PostgRESTClient) Ping(ctx context.Context) error {
	resp, err := c.MakeRequest(ctx, http.MethodHead, "/", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("PostgREST 不可用，状态码: %d", resp.StatusCode)
	}
	return nil
}

// GetAccessToken 获取当前访问Token
func (c *PostgRESTClient) GetAccessToken() string {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.accessToken
}

// IsTokenValid 检查Token是否有效
func (c *PostgRESTClient) IsTokenValid() bool {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.accessToken != "" && time.Now().Before(c.tokenExpiry)
}

// GetStatistics 获取客户端统计信息
func (c *PostgRESTClient) GetStatistics() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	return map[string]interface{}{
		"base_url":          c.baseURL,
		"username":          c.username,
		"request_count":     c.stats.RequestCount,
		"success_count":     c.stats.SuccessCount,
		"error_count":       c.stats.ErrorCount,
		"token_refreshed":   c.stats.TokenRefreshed,
		"last_token_time":   c.stats.LastTokenTime,
		"last_request_time": c.stats.LastRequestTime,
		"token_valid":       c.IsTokenValid(),
	}
}

// Close 关闭客户端
func (c *PostgRESTClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.refreshTicker != nil {
			c.refreshTicker.Stop()
		}
		if c.stopRefresh != nil {
			close(c.stopRefresh)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = c.revokeRefreshToken(ctx)
	})
	return err
}

// revokeRefreshToken 撤销刷新Token
func (c *PostgRESTClient) revokeRefreshToken(ctx context.Context) error {
	c.tokenMutex.RLock()
	currentRefreshToken := c.refreshToken
	currentAccessToken := c.accessToken
	c.tokenMutex.RUnlock()

	if currentRefreshToken == "" {
		return nil
	}

	resp, err := c.postRPC(ctx, "revoke_refresh_token", map[string]string{
		"refresh_token": currentRefreshToken,
	}, currentAccessToken)
	if err != nil {
		return fmt.Errorf("撤销Token请求失败: %w", err)
	}
	resp.Body.Close()

	// 清空Token
	c.tokenMutex.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.tokenExpiry = time.Time{}
	c.tokenMutex.Unlock()

	return nil
}
