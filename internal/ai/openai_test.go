package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"spurline/internal/config"
	"spurline/internal/pkg/apperr"
)

// newTestClient 指向本地 httptest 服务的客户端
func newTestClient(baseURL string) *openaiClient {
	return newOpenAIClient(&config.AIConfig{
		Provider: "openai",
		APIKey:   "test-key",
		Model:    "test-model",
		BaseURL:  baseURL,
	})
}

// sseHandler 按给定片段返回一个流式响应
func sseHandler(chunks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func TestOpenAIClientStream(t *testing.T) {
	Convey("openaiClient 流式生成", t, func() {
		Convey("最终内容等于所有片段按序拼接", func() {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					sseHandler([]string{"Hello", ", ", "world", "!"})(w, r)
					return
				}
				// 第二次调用是推荐追问
				fmt.Fprint(w, `{"choices":[{"message":{"content":"[\"A?\",\"B?\"]"}}]}`)
			}))
			defer srv.Close()

			var received []string
			reply, err := newTestClient(srv.URL).GenerateReplyStream(context.Background(), nil, "hi", func(chunk string) {
				received = append(received, chunk)
			})

			So(err, ShouldBeNil)
			So(reply.Content, ShouldEqual, "Hello, world!")
			So(received, ShouldResemble, []string{"Hello", ", ", "world", "!"})
			So(reply.Suggestions, ShouldResemble, []string{"A?", "B?"})
		})

		Convey("畸形帧被跳过，流不中断", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok \"}}]}\n\n")
				fmt.Fprint(w, "data: {not valid json}\n\n")
				fmt.Fprint(w, ": comment line\n\n")
				fmt.Fprint(w, "data: {\"choices\":[]}\n\n")
				fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"done\"}}]}\n\n")
				fmt.Fprint(w, "data: [DONE]\n\n")
			}))
			defer srv.Close()

			content, err := newTestClient(srv.URL).streamCompletion(context.Background(), buildMessages(nil, "hi"), func(string) {})

			So(err, ShouldBeNil)
			So(content, ShouldEqual, "ok done")
		})

		Convey("推荐追问失败只降级为空，不影响主回复", func() {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if calls == 1 {
					sseHandler([]string{"reply"})(w, r)
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			reply, err := newTestClient(srv.URL).GenerateReplyStream(context.Background(), nil, "hi", func(string) {})

			So(err, ShouldBeNil)
			So(reply.Content, ShouldEqual, "reply")
			So(reply.Suggestions, ShouldBeNil)
		})
	})
}

func TestOpenAIClientErrors(t *testing.T) {
	Convey("openaiClient 错误归类", t, func() {
		statusCase := func(status, wantCode int, retryable bool) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).GenerateReplyStream(context.Background(), nil, "hi", func(string) {})

			So(err, ShouldNotBeNil)
			appErr := apperr.From(err)
			So(appErr.Code, ShouldEqual, wantCode)
			So(apperr.IsRetryable(err), ShouldEqual, retryable)
		}

		Convey("429 归为 LLM 限流（可重试）", func() {
			statusCase(http.StatusTooManyRequests, apperr.CodeLLMRateLimited, true)
		})

		Convey("503 归为 LLM 不可用（可重试）", func() {
			statusCase(http.StatusServiceUnavailable, apperr.CodeLLMUnavailable, true)
		})

		Convey("其他非 2xx 归为一般处理失败（不可重试）", func() {
			statusCase(http.StatusBadRequest, apperr.CodeProcessing, false)
		})

		Convey("超时归为 LLM 超时", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			client.timeout = 20 * time.Millisecond

			_, err := client.GenerateReplyStream(context.Background(), nil, "hi", func(string) {})

			So(err, ShouldNotBeNil)
			So(apperr.From(err).Code, ShouldEqual, apperr.CodeLLMTimeout)
		})

		Convey("连接失败归为 LLM 不可用", func() {
			client := newTestClient("http://127.0.0.1:1")

			_, err := client.GenerateReplyStream(context.Background(), nil, "hi", func(string) {})

			So(err, ShouldNotBeNil)
			So(apperr.From(err).Code, ShouldEqual, apperr.CodeLLMUnavailable)
		})
	})
}
