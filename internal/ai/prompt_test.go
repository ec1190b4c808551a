package ai

import (
	"fmt"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"spurline/internal/model/chat"
)

func makeHistory(n int) []*chat.Message {
	msgs := make([]*chat.Message, n)
	for i := range msgs {
		sender := chat.SenderUser
		if i%2 == 1 {
			sender = chat.SenderAssistant
		}
		msgs[i] = &chat.Message{
			ID:      fmt.Sprintf("msg-%d", i),
			Sender:  sender,
			Content: fmt.Sprintf("message %d", i),
		}
	}
	return msgs
}

func TestBuildMessages(t *testing.T) {
	Convey("buildMessages 构造请求消息序列", t, func() {
		Convey("首条是系统指令，末条是本轮用户消息", func() {
			messages := buildMessages(makeHistory(3), "hello")

			So(len(messages), ShouldEqual, 5)
			So(messages[0].Role, ShouldEqual, roleSystem)
			So(messages[0].Content, ShouldContainSubstring, "KNOWLEDGE BASE")
			So(messages[len(messages)-1].Role, ShouldEqual, roleUser)
			So(messages[len(messages)-1].Content, ShouldEqual, "hello")
		})

		Convey("历史角色按发送方映射", func() {
			messages := buildMessages(makeHistory(2), "hello")

			So(messages[1].Role, ShouldEqual, roleUser)
			So(messages[2].Role, ShouldEqual, roleAssistant)
		})

		Convey("历史超过窗口时只保留最近的几条", func() {
			messages := buildMessages(makeHistory(20), "hello")

			// system + maxHistory + 本轮消息
			So(len(messages), ShouldEqual, maxHistory+2)
			// 保留的是最新的，最老的被丢弃
			So(messages[1].Content, ShouldEqual, "message 12")
			So(messages[maxHistory].Content, ShouldEqual, "message 19")
		})

		Convey("空历史只有系统指令和用户消息", func() {
			messages := buildMessages(nil, "hi")

			So(len(messages), ShouldEqual, 2)
		})
	})
}

func TestParseSuggestions(t *testing.T) {
	Convey("parseSuggestions 提取推荐追问", t, func() {
		Convey("标准 JSON 数组", func() {
			got := parseSuggestions(`["Track my order?","Return policy?","Delivery time?"]`)
			So(got, ShouldResemble, []string{"Track my order?", "Return policy?", "Delivery time?"})
		})

		Convey("数组前后可以带多余文本", func() {
			got := parseSuggestions(`Sure! Here you go: ["A","B"] hope it helps`)
			So(got, ShouldResemble, []string{"A", "B"})
		})

		Convey("超出条数上限时截断", func() {
			got := parseSuggestions(`["A","B","C","D","E"]`)
			So(len(got), ShouldEqual, maxSuggestions)
		})

		Convey("超长的单条会被截短", func() {
			long := strings.Repeat("x", 100)
			got := parseSuggestions(`["` + long + `"]`)
			So(len([]rune(got[0])), ShouldEqual, maxSuggestionLength)
		})

		Convey("空白项被过滤", func() {
			got := parseSuggestions(`["  ","A"]`)
			So(got, ShouldResemble, []string{"A"})
		})

		Convey("畸形输入返回 nil", func() {
			So(parseSuggestions(`no array here`), ShouldBeNil)
			So(parseSuggestions(`[1,2,3]`), ShouldBeNil)
			So(parseSuggestions(`[`), ShouldBeNil)
			So(parseSuggestions(``), ShouldBeNil)
		})
	})
}

func TestSuggestionContext(t *testing.T) {
	Convey("suggestionContext 截取回复开头", t, func() {
		Convey("短回复原样包装", func() {
			So(suggestionContext("short reply"), ShouldEqual, `Context: "short reply"`)
		})

		Convey("长回复按字符截断", func() {
			long := strings.Repeat("好", 300)
			got := suggestionContext(long)
			So(len([]rune(got)), ShouldEqual, suggestionCtxLength+len([]rune(`Context: ""`)))
		})
	})
}
