package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	arkext "github.com/cloudwego/eino-ext/components/model/ark"
	openaiext "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"spurline/internal/config"
	"spurline/internal/model/chat"
)

// einoClient 基于 Eino ChatModel 的 LLM 客户端
// 与 openaiClient 实现同一接口，用于 ark / azure 等供应商
type einoClient struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
}

// newEinoClient 创建 Eino 客户端
func newEinoClient(ctx context.Context, cfg *config.AIConfig) (*einoClient, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)

	switch cfg.Provider {
	case "ark":
		chatModel, err = newArkChatModel(ctx, cfg)
	default: // azure
		chatModel, err = newAzureChatModel(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}

	return &einoClient{chatModel: chatModel, timeout: timeout}, nil
}

// newArkChatModel 创建 Ark ChatModel
func newArkChatModel(ctx context.Context, cfg *config.AIConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}

	modelCfg := &arkext.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
	}
	applyArkOptions(modelCfg, &cfg.Options)

	return arkext.NewChatModel(ctx, modelCfg)
}

// newAzureChatModel 创建 Azure OpenAI ChatModel
func newAzureChatModel(ctx context.Context, cfg *config.AIConfig) (model.BaseChatModel, error) {
	modelCfg := &openaiext.ChatModelConfig{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		ByAzure: true,
	}
	if cfg.Options.Temperature > 0 {
		temp := float32(cfg.Options.Temperature)
		modelCfg.Temperature = &temp
	}
	if cfg.Options.MaxTokens > 0 {
		modelCfg.MaxTokens = &cfg.Options.MaxTokens
	}

	return openaiext.NewChatModel(ctx, modelCfg)
}

func applyArkOptions(modelCfg *arkext.ChatModelConfig, opts *config.AIOptionsConfig) {
	if opts.Temperature > 0 {
		temp := float32(opts.Temperature)
		modelCfg.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		modelCfg.MaxTokens = &opts.MaxTokens
	}
	if opts.TopP > 0 {
		topP := float32(opts.TopP)
		modelCfg.TopP = &topP
	}
}

// GenerateReply 同步生成回复
func (c *einoClient) GenerateReply(ctx context.Context, history []*chat.Message, userMessage string) (string, error) {
	reply, err := c.GenerateReplyStream(ctx, history, userMessage, func(string) {})
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

// GenerateReplyStream 流式生成回复
func (c *einoClient) GenerateReplyStream(ctx context.Context, history []*chat.Message, userMessage string, onChunk func(string)) (*Reply, error) {
	messages := toSchemaMessages(buildMessages(history, userMessage))

	streamCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reader, err := c.chatModel.Stream(streamCtx, messages)
	if err != nil {
		return nil, classifyLLMError(err)
	}
	defer reader.Close()

	var content strings.Builder
	for {
		frame, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classifyLLMError(err)
		}
		if frame.Content == "" {
			continue
		}
		content.WriteString(frame.Content)
		onChunk(frame.Content)
	}

	return &Reply{
		Content:     strings.TrimSpace(content.String()),
		Suggestions: c.generateSuggestions(ctx, content.String()),
	}, nil
}

// generateSuggestions 生成推荐追问，失败只降级为空列表
func (c *einoClient) generateSuggestions(ctx context.Context, content string) []string {
	sctx, cancel := context.WithTimeout(ctx, suggestionTimeout)
	defer cancel()

	resp, err := c.chatModel.Generate(sctx, []*schema.Message{
		schema.SystemMessage(suggestionPrompt),
		schema.UserMessage(suggestionContext(content)),
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to generate suggestions")
		return nil
	}

	return parseSuggestions(resp.Content)
}

// toSchemaMessages 转换为 Eino 消息格式
func toSchemaMessages(messages []chatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case roleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case roleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}
	return out
}
