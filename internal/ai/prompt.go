package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"spurline/internal/model/chat"
)

// 内嵌知识库（生产环境应外置）
const domainKnowledge = `KNOWLEDGE BASE:
- Shipping: Free on orders $50+. Standard: 5-7 days. International: 10-14 days.
- Returns: 30 days. Unused, tags attached. Refund in 5-7 days.
- Hours: Mon-Fri 9AM-6PM EST. Email 24/7, reply within 24h.
- Payment: Visa, Mastercard, Amex, PayPal, Apple Pay.
- Tracking: Email within 24h of shipment.`

const systemPrompt = `You are a helpful AI assistant for Spurline.
Be concise, accurate, and friendly. Keep responses to 1-2 sentences.
If unsure, say so. Never fabricate information.
Match the user's language in your response.

` + domainKnowledge

const suggestionPrompt = `Generate exactly 3 short follow-up questions (max 6 words each) based on the conversation context. Return only a JSON array. Example: ["Track my order?","Return policy?","Delivery time?"]`

const (
	maxHistory          = 8  // 请求中携带的最近消息条数上限
	maxSuggestions      = 3  // 推荐追问条数上限
	maxSuggestionLength = 40 // 单条推荐追问字符上限
	suggestionCtxLength = 150
)

// 供应商协议的消息角色
const (
	roleSystem    = "system"
	roleUser      = "user"
	roleAssistant = "assistant"
)

// chatMessage 供应商协议的消息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildMessages 构造请求消息序列: 系统指令 + 截断后的历史 + 本轮用户消息
func buildMessages(history []*chat.Message, userMessage string) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: roleSystem, Content: systemPrompt})

	recent := history
	if len(recent) > maxHistory {
		recent = recent[len(recent)-maxHistory:]
	}
	for _, msg := range recent {
		role := roleAssistant
		if msg.Sender == chat.SenderUser {
			role = roleUser
		}
		messages = append(messages, chatMessage{Role: role, Content: msg.Content})
	}

	messages = append(messages, chatMessage{Role: roleUser, Content: userMessage})
	return messages
}

// suggestionContext 截取回复开头部分作为追问生成的上下文
func suggestionContext(content string) string {
	runes := []rune(content)
	if len(runes) > suggestionCtxLength {
		runes = runes[:suggestionCtxLength]
	}
	return `Context: "` + string(runes) + `"`
}

var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*?\]`)

// parseSuggestions 从模型输出中提取 JSON 数组形式的推荐追问
// 任何解析失败都返回 nil，不影响主回复
func parseSuggestions(text string) []string {
	match := jsonArrayPattern.FindString(text)
	if match == "" {
		return nil
	}

	var parsed []string
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil
	}

	if len(parsed) > maxSuggestions {
		parsed = parsed[:maxSuggestions]
	}

	suggestions := make([]string, 0, len(parsed))
	for _, s := range parsed {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if runes := []rune(s); len(runes) > maxSuggestionLength {
			s = string(runes[:maxSuggestionLength])
		}
		suggestions = append(suggestions, s)
	}
	if len(suggestions) == 0 {
		return nil
	}
	return suggestions
}
