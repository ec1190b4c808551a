package ai

import (
	"context"
	"fmt"

	"spurline/internal/config"
	"spurline/internal/model/chat"
)

// Reply LLM 完整回复
type Reply struct {
	Content     string   // 完整回复文本（各分片拼接后 trim）
	Suggestions []string // 推荐追问，至多 3 条，生成失败时为空
}

// Client LLM 能力抽象
// 编排层只依赖该接口，便于替换供应商或本地模型
type Client interface {
	// GenerateReply 同步生成回复
	GenerateReply(ctx context.Context, history []*chat.Message, userMessage string) (string, error)

	// GenerateReplyStream 流式生成回复
	// onChunk 按供应商下发顺序逐片回调，返回的 Content 等于所有分片的拼接
	GenerateReplyStream(ctx context.Context, history []*chat.Message, userMessage string, onChunk func(chunk string)) (*Reply, error)
}

// New 根据配置创建 LLM 客户端
//   - openai / huggingface: 原生 SSE 客户端（OpenAI 兼容协议）
//   - ark / azure: Eino ChatModel 实现
func New(ctx context.Context, cfg *config.AIConfig) (Client, error) {
	switch cfg.Provider {
	case "openai", "huggingface", "":
		return newOpenAIClient(cfg), nil
	case "ark", "azure":
		return newEinoClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}
}
