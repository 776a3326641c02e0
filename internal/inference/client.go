package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"FocusTrackerAI/pkg/logger"
)

// Client 推理服务客户端（Ollama 兼容接口）
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient 创建推理服务客户端
// headerTimeout 限制等待首个响应的时间，防止远端挂死导致任务永远停在运行中；
// 流式读取本身不设总超时，由调用方的 context 控制取消
func NewClient(endpoint string, headerTimeout time.Duration) *Client {
	if headerTimeout <= 0 {
		headerTimeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: headerTimeout,
			},
		},
	}
}

// GenerateOptions 文本生成参数
type GenerateOptions struct {
	Model       string
	Temperature float32
	NumPredict  int
}

// generateRequest /api/generate 请求体
type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options"`
}

// generateChunk 流式响应中的一个片段
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate 流式生成文本
// 每收到一个片段调用一次 onChunk；片段按到达顺序交付，
// 单个损坏的 JSON 片段记录日志后跳过，不中断整个流；
// ctx 取消时立即停止消费并返回 ctx 的错误
func (c *Client) Generate(ctx context.Context, prompt string, opts GenerateOptions, onChunk func(text string)) error {
	reqBody := generateRequest{
		Model:  opts.Model,
		Prompt: prompt,
		Stream: true,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
			"num_predict": opts.NumPredict,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		// 片段之间检查取消，不会截断已接收的片段
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			logger.Warn("流式响应片段解析失败，已跳过: %v", err)
			continue
		}

		if chunk.Response != "" {
			onChunk(chunk.Response)
		}
		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		// context 取消会以读取错误的形式浮出，优先报告取消
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to read stream: %w", err)
	}

	return nil
}

// ChatMessage 对话消息
// Images 为 base64 编码的图片，供视觉模型使用
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// chatRequest /api/chat 请求体
type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []ChatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options"`
}

// chatResponse /api/chat 非流式响应
type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Chat 非流式对话（监控分类和疲劳度干预报告使用）
func (c *Client) Chat(ctx context.Context, messages []ChatMessage, model string, temperature float32) (string, error) {
	reqBody := chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: map[string]interface{}{
			"temperature": temperature,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return apiResp.Message.Content, nil
}
