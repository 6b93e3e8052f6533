package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client 调用微信小程序服务端接口
type Client struct {
	appID      string
	appSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Session 是 jscode2session 的返回结果
type Session struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

func NewClient(appID, appSecret, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.weixin.qq.com"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		appID:      appID,
		appSecret:  appSecret,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// JSCode2Session 用小程序登录 code 换取 openid 和 session_key
func (c *Client) JSCode2Session(ctx context.Context, code string) (*Session, error) {
	params := url.Values{}
	params.Set("appid", c.appID)
	params.Set("secret", c.appSecret)
	params.Set("js_code", code)
	params.Set("grant_type", "authorization_code")

	reqURL := c.baseURL + "/sns/jscode2session?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("wechat request failed", zap.Error(err))
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("wechat API request failed", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return nil, fmt.Errorf("wechat API request failed with status %d", resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if session.ErrCode != 0 {
		c.logger.Warn("wechat API error", zap.Int("errcode", session.ErrCode), zap.String("errmsg", session.ErrMsg))
		return nil, fmt.Errorf("wechat API error %d: %s", session.ErrCode, session.ErrMsg)
	}

	c.logger.Debug("wechat session exchanged", zap.String("openid", session.OpenID))
	return &session, nil
}
