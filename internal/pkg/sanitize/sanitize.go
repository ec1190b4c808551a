package sanitize

import (
	"regexp"
	"strings"
)

var excessWhitespace = regexp.MustCompile(`\s{10,}`)

// Clean 清理用户输入用于安全展示
// 去除首尾空白和 NUL 字节，压缩连续 10 个以上的空白字符
// 注意: SQL/NoSQL 注入由参数化查询防护，不依赖此函数
func Clean(input string) string {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "\x00", "")
	s = excessWhitespace.ReplaceAllString(s, strings.Repeat(" ", 10))
	return s
}

// HasContent 判断消息是否包含有效文本（排除纯空白内容）
func HasContent(content string) bool {
	for _, r := range content {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}
