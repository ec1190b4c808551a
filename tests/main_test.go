// Package tests 集成测试
//
// 运行集成测试：
//
//	MONGO_URI=mongodb://localhost:27017 go test ./tests -v
//
// 说明：
//   - MONGO_URI: MongoDB 连接地址（默认: mongodb://localhost:27017）
//   - KEEP_TEST_DATA: 设置为 "true" 时，测试完成后保留数据库数据（默认: false，会自动清理）
//   - 测试使用独立的 spurline_test 数据库，不会触碰业务数据
package tests

import (
	"context"
	"fmt"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spurline/internal/pkg/mongodb"
)

// 包级别的测试环境变量（在 TestMain 中初始化）
var (
	testCtx         context.Context
	testDB          *mongo.Database
	testMongoClient *mongo.Client
)

// TestMain 测试主函数，在所有测试运行前初始化和运行后清理
func TestMain(m *testing.M) {
	testCtx = context.Background()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	var err error
	testMongoClient, err = mongo.Connect(testCtx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to MongoDB: %v", err))
	}

	testDB = testMongoClient.Database("spurline_test")

	if err := mongodb.EnsureIndexes(testDB); err != nil {
		panic(fmt.Sprintf("Failed to ensure indexes: %v", err))
	}

	code := m.Run()

	if os.Getenv("KEEP_TEST_DATA") != "true" {
		if err := testDB.Drop(testCtx); err != nil {
			fmt.Fprintf(os.Stderr, "警告: 清理测试数据库失败: %v\n", err)
		}
	}
	_ = testMongoClient.Disconnect(testCtx)

	os.Exit(code)
}
