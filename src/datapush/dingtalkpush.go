package datapush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// 默认值
const (
	RETRY_TIMES    = 3
	RETRY_INTERVAL = 2 * time.Second
	COOLDOWN       = 10 * time.Minute
)

// ErrDisabled 未配置 webhook
var ErrDisabled = errors.New("未配置钉钉 webhook")

// 钉钉 API 响应结构体
type DingTalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Notifier 通过钉钉群机器人 webhook 推送告警文本
type Notifier struct {
	Webhook       string
	RetryTimes    int
	RetryInterval time.Duration
	Cooldown      time.Duration // 相同内容在冷却期内只推送一次
	Client        *http.Client

	mu       sync.Mutex
	lastMsg  string
	lastSent time.Time
	now      func() time.Time
}

// NewNotifier webhook 为空时返回的 Notifier 不推送任何消息
func NewNotifier(webhook string, retryTimes int, retryInterval, cooldown time.Duration) *Notifier {
	if retryTimes <= 0 {
		retryTimes = RETRY_TIMES
	}
	if retryInterval <= 0 {
		retryInterval = RETRY_INTERVAL
	}
	if cooldown < 0 {
		cooldown = COOLDOWN
	}
	return &Notifier{
		Webhook:       webhook,
		RetryTimes:    retryTimes,
		RetryInterval: retryInterval,
		Cooldown:      cooldown,
		Client:        &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

// Enabled 是否配置了 webhook
func (n *Notifier) Enabled() bool { return n != nil && n.Webhook != "" }

// Notify 推送文本消息，冷却期内的重复内容直接忽略
// 返回值:
//
//	bool: 是否真正发出
//	error: 重试后仍失败的错误
func (n *Notifier) Notify(ctx context.Context, content string) (bool, error) {
	if !n.Enabled() {
		return false, ErrDisabled
	}
	if n.suppressed(content) {
		return false, nil
	}

	err := retry(ctx, func() error {
		return n.sendText(ctx, content)
	}, n.RetryTimes, n.RetryInterval)
	if err != nil {
		// 失败不进入冷却，下次仍会尝试
		n.mu.Lock()
		n.lastMsg = ""
		n.mu.Unlock()
		return false, err
	}
	return true, nil
}

func (n *Notifier) suppressed(content string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if content == n.lastMsg && now.Sub(n.lastSent) < n.Cooldown {
		return true
	}
	n.lastMsg, n.lastSent = content, now
	return false
}

// sendText 发送钉钉机器人文本消息
func (n *Notifier) sendText(ctx context.Context, content string) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": content,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求体失败: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Webhook, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook 返回状态码 %d", resp.StatusCode)
	}

	var result DingTalkResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("解析响应失败: %v", err)
	}

	if result.ErrCode != 0 {
		return fmt.Errorf("发送消息失败: %s", result.ErrMsg)
	}

	return nil
}

// 重试函数，ctx 结束时提前返回
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
