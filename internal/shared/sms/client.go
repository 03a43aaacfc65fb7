package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client 短信网关客户端，WhatsApp不可达时的兜底通道
type Client struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

// NewClient 创建短信客户端实例
func NewClient(baseURL, apiKey, senderID string) *Client {
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		senderID: senderID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendResponse 网关响应
type sendResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// Send 发送一条短信
func (c *Client) Send(ctx context.Context, phone, body string) (string, error) {
	form := url.Values{}
	form.Set("to", phone)
	form.Set("sender_id", c.senderID)
	form.Set("message", body)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/send",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求短信网关失败: %w", err)
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.StatusCode >= 300 || result.Status != "success" {
		return "", fmt.Errorf("短信网关错误 (status=%d): %s", resp.StatusCode, result.Message)
	}
	return result.MessageID, nil
}
