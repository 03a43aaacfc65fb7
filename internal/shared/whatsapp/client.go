package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// 默认走Meta WhatsApp Cloud API
const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Client WhatsApp Cloud API客户端
// 只发送事先审核通过的消息模板，自由文本不在能力范围内
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

// NewClient 创建WhatsApp客户端实例
func NewClient(baseURL, phoneNumberID, accessToken string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:       baseURL,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// templateMessage 模板消息请求体
type templateMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components,omitempty"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// sendResponse 发送接口响应
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendTemplate 发送模板消息，变量按插入顺序填充模板占位符
func (c *Client) SendTemplate(ctx context.Context, phone, templateKey string, variables map[string]string) (string, error) {
	var params []parameter
	// 固定顺序填充，模板占位符与字段一一对应
	for _, key := range []string{"drawing_name", "link"} {
		if v, ok := variables[key]; ok {
			params = append(params, parameter{Type: "text", Text: v})
		}
	}

	msg := templateMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template: template{
			Name:     templateKey,
			Language: language{Code: "en"},
		},
	}
	if len(params) > 0 {
		msg.Template.Components = []component{{Type: "body", Parameters: params}}
	}

	bodyBytes, _ := json.Marshal(msg)
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求WhatsApp API失败: %w", err)
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("WhatsApp API错误 (code=%d): %s", result.Error.Code, result.Error.Message)
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("WhatsApp API未返回消息ID (status=%d)", resp.StatusCode)
	}
	return result.Messages[0].ID, nil
}
