package data

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"webrag/internal/conf"
	"webrag/internal/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	// Qdrant 官方 Go SDK
	"github.com/qdrant/go-client/qdrant"
)

// CollectionName 向量集合名 (与原型阶段保持一致)
const CollectionName = "web_content"

// Data 结构体持有所有数据库句柄
type Data struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Qdrant *qdrant.Client
	Minio  *minio.Client

	cfg *conf.Config
}

func NewData(cfg *conf.Config) (*Data, func(), error) {
	// -------------------------------------------------------
	// 1. 连接 Postgres
	// -------------------------------------------------------
	dsn := cfg.Data.DatabaseSource
	pgDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %v", err)
	}

	// 自动迁移：任务表
	if err := pgDB.AutoMigrate(&model.Document{}); err != nil {
		return nil, nil, fmt.Errorf("schema migration failed: %v", err)
	}
	log.Println("✅ 数据库表结构迁移完成")

	// -------------------------------------------------------
	// 2. 初始化 Redis (任务队列)
	// -------------------------------------------------------
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Data.RedisAddr,
		Password: cfg.Data.RedisPassword,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, nil, fmt.Errorf("redis ping failed: %v", err)
	}
	log.Println("✅ Redis 连接成功")

	// -------------------------------------------------------
	// 3. 初始化 MinIO (原始网页快照归档)
	// -------------------------------------------------------
	minioClient, err := minio.New(cfg.Data.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Data.MinioAccessKey, cfg.Data.MinioSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("minio init failed: %v", err)
	}

	bucketName := cfg.Data.MinioBucket
	if bucketName == "" {
		bucketName = "webrag-raw" // 兜底
	}
	exists, err := minioClient.BucketExists(context.Background(), bucketName)
	if err != nil {
		// 归档是 best-effort 能力，对象存储不可用不阻塞启动
		log.Printf("⚠️ 检查 MinIO Bucket 失败: %v", err)
	} else if !exists {
		if err := minioClient.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			log.Printf("⚠️ 创建 MinIO Bucket 失败: %v", err)
		} else {
			log.Printf("🎉 MinIO Bucket '%s' 创建成功", bucketName)
		}
	} else {
		log.Printf("✅ MinIO 连接成功 (Bucket '%s' 已存在)", bucketName)
	}

	// -------------------------------------------------------
	// 4. 初始化 Qdrant
	// -------------------------------------------------------
	qdrantHost, qdrantPort := parseHostPort(cfg.Data.QdrantAddr, "localhost", 6334)

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host: qdrantHost,
		Port: qdrantPort,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant init failed: %v", err)
	}

	// 验证连接并创建集合
	createCollection(qdrantClient, cfg.AI.EmbedDim)

	d := &Data{
		DB:     pgDB,
		Redis:  rdb,
		Qdrant: qdrantClient,
		Minio:  minioClient,
		cfg:    cfg,
	}

	cleanup := func() {
		log.Println("正在关闭数据层资源...")
		if sqlDB, err := d.DB.DB(); err == nil {
			sqlDB.Close()
		}
		d.Redis.Close()
		d.Qdrant.Close()
	}

	return d, cleanup, nil
}

// 辅助函数: 解析 "host:port" 字符串
func parseHostPort(addr string, defaultHost string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

// 辅助函数：确保 Collection 存在
func createCollection(client *qdrant.Client, dim int) {
	ctx := context.Background()

	// 尝试列出集合，这本身就是一种连接测试
	collections, err := client.ListCollections(ctx)
	if err != nil {
		log.Printf("⚠️ 无法连接 Qdrant (ListCollections 失败): %v", err)
		return
	}

	exists := false
	for _, c := range collections {
		if c == CollectionName {
			exists = true
			break
		}
	}

	if !exists {
		// ⚠️ 维度来自配置，必须和 Embedding 模型一致 (all-MiniLM-L6-v2 是 384)
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: CollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			log.Printf("❌ 创建 Collection 失败: %v", err)
		} else {
			log.Printf("🎉 Qdrant Collection '%s' 创建成功 (dim=%d)", CollectionName, dim)
		}
	} else {
		log.Printf("✅ Qdrant 连接成功 (Collection '%s' 已存在)", CollectionName)
	}
}
