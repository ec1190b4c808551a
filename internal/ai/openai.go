package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spurline/internal/config"
	"spurline/internal/model/chat"
	"spurline/internal/pkg/apperr"
)

const (
	defaultBaseURL        = "https://router.huggingface.co/v1"
	defaultStreamTimeout  = 45 * time.Second
	defaultMaxTokens      = 256
	defaultTemperature    = 0.7
	suggestionMaxTokens   = 80
	suggestionTemperature = 0.5
	suggestionTimeout     = 15 * time.Second

	sseDataPrefix = "data: "
	sseDoneMarker = "[DONE]"
)

// openaiClient OpenAI 兼容协议的原生流式客户端
// 直接读取 SSE 帧: 逐行解析 "data: {json}"，单帧解析失败跳过而不中断整个流
type openaiClient struct {
	endpoint    string
	apiKey      string
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// newOpenAIClient 创建原生流式客户端
func newOpenAIClient(cfg *config.AIConfig) *openaiClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}

	maxTokens := cfg.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	temperature := cfg.Options.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	return &openaiClient{
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		timeout:     timeout,
		maxTokens:   maxTokens,
		temperature: temperature,
		// 超时由每次请求的 context 控制，流式连接不能用 client 级超时
		httpClient: &http.Client{},
	}
}

// completionRequest /chat/completions 请求体
type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream,omitempty"`
}

// streamFrame 流式响应单帧
type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// completionResponse 非流式响应
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateReply 同步生成回复
func (c *openaiClient) GenerateReply(ctx context.Context, history []*chat.Message, userMessage string) (string, error) {
	reply, err := c.GenerateReplyStream(ctx, history, userMessage, func(string) {})
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// GenerateReplyStream 流式生成回复
func (c *openaiClient) GenerateReplyStream(ctx context.Context, history []*chat.Message, userMessage string, onChunk func(string)) (*Reply, error) {
	start := time.Now()
	messages := buildMessages(history, userMessage)

	log.Debug().
		Int("history_len", len(history)).
		Int("message_len", len(userMessage)).
		Msg("LLM request started")

	streamCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content, err := c.streamCompletion(streamCtx, messages, onChunk)
	if err != nil {
		log.Error().Err(err).
			Dur("duration", time.Since(start)).
			Msg("LLM request failed")
		return nil, classifyLLMError(err)
	}

	// 推荐追问为 best-effort，失败不影响主回复
	suggestions := c.generateSuggestions(ctx, content)

	log.Info().
		Dur("duration", time.Since(start)).
		Int("response_len", len(content)).
		Int("suggestions", len(suggestions)).
		Msg("LLM request completed")

	return &Reply{Content: content, Suggestions: suggestions}, nil
}

// streamCompletion 发起流式请求并消费 SSE 流
func (c *openaiClient) streamCompletion(ctx context.Context, messages []chatMessage, onChunk func(string)) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      true,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		delta, ok := parseStreamLine(scanner.Text())
		if !ok {
			continue
		}
		content.WriteString(delta)
		onChunk(delta)
	}
	if err := scanner.Err(); err != nil {
		// 超时取消会在读取中途出现，交由 classifyLLMError 归类
		return "", err
	}

	return strings.TrimSpace(content.String()), nil
}

// parseStreamLine 解析一行 SSE 帧，返回文本增量
// 非数据行、结束标记、畸形 JSON、空增量一律返回 false
func parseStreamLine(line string) (string, bool) {
	if !strings.HasPrefix(line, sseDataPrefix) {
		return "", false
	}

	data := line[len(sseDataPrefix):]
	if data == sseDoneMarker {
		return "", false
	}

	var frame streamFrame
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		return "", false
	}
	if len(frame.Choices) == 0 || frame.Choices[0].Delta.Content == "" {
		return "", false
	}
	return frame.Choices[0].Delta.Content, true
}

// generateSuggestions 生成推荐追问（非流式二次请求）
// 任何失败（网络、非 2xx、畸形 JSON）都只降级为空列表
func (c *openaiClient) generateSuggestions(ctx context.Context, content string) []string {
	sctx, cancel := context.WithTimeout(ctx, suggestionTimeout)
	defer cancel()

	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: roleSystem, Content: suggestionPrompt},
			{Role: roleUser, Content: suggestionContext(content)},
		},
		MaxTokens:   suggestionMaxTokens,
		Temperature: suggestionTemperature,
	})
	if err != nil {
		return nil
	}

	resp, err := c.post(sctx, body)
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate suggestions")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("failed to generate suggestions")
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil
	}

	return parseSuggestions(parsed.Choices[0].Message.Content)
}

func (c *openaiClient) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// checkStatus HTTP 状态码到错误类型的映射
// 429 -> 限流（可重试）; 503 -> 不可用（可重试）; 其他非 2xx -> 一般失败（不可重试）
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperr.LLMRateLimited()
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperr.LLMUnavailable(nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return apperr.Processing(fmt.Errorf("llm api error: status %d", resp.StatusCode))
	}
	return nil
}

// classifyLLMError 把传输层错误归类为本地错误类型
// 已分类的错误原样透传; 超时/取消归为 timeout; 其余视为服务不可用
func classifyLLMError(err error) error {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.LLMTimeout()
	}
	return apperr.LLMUnavailable(err)
}
