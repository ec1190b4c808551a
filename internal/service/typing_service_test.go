package service

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"spurline/internal/pkg/cache"
)

func TestTypingService(t *testing.T) {
	ctx := context.Background()

	Convey("TypingService 输入状态", t, func() {
		store := newFakeTypingStore()
		svc := NewTypingService(store, 30*time.Second)

		Convey("Set 后 IsTyping 为真", func() {
			svc.Set(ctx, "conv-1")
			So(svc.IsTyping(ctx, "conv-1"), ShouldBeTrue)
		})

		Convey("Clear 后 IsTyping 为假", func() {
			svc.Set(ctx, "conv-1")
			svc.Clear(ctx, "conv-1")
			So(svc.IsTyping(ctx, "conv-1"), ShouldBeFalse)
		})

		Convey("不同会话互不影响", func() {
			svc.Set(ctx, "conv-1")
			So(svc.IsTyping(ctx, "conv-2"), ShouldBeFalse)
		})

		Convey("未设置过的会话为假", func() {
			So(svc.IsTyping(ctx, "unknown"), ShouldBeFalse)
		})

		Convey("key 按约定前缀生成", func() {
			svc.Set(ctx, "conv-1")
			_, ok := store.keys[cache.TypingKey("conv-1")]
			So(ok, ShouldBeTrue)
		})
	})
}
