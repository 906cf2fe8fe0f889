package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"webrag/internal/chunker"
	"webrag/internal/conf"
	"webrag/internal/data"
	"webrag/internal/embedding"
	"webrag/internal/fetcher"
	"webrag/internal/handler"
	"webrag/internal/llm"
	"webrag/internal/middleware"
	"webrag/internal/repository"
	"webrag/internal/service"
	"webrag/internal/worker"
)

func main() {
	// 1. 加载配置
	cfg := conf.LoadConfig()

	// 2. 初始化数据层 (Postgres, Redis, Qdrant, MinIO)
	d, cleanup, err := data.NewData(cfg)
	if err != nil {
		log.Fatalf("❌ 数据层初始化失败: %v", err)
	}
	defer cleanup()

	docRepo := repository.NewDocumentRepository(d.DB)

	// 3. 初始化外部 AI 客户端
	embedClient := embedding.NewClient(embedding.Config{
		BaseURL: cfg.AI.EmbedBaseURL,
		APIKey:  cfg.AI.EmbedAPIKey,
		Model:   cfg.AI.EmbedModel,
		Dim:     cfg.AI.EmbedDim,
	})
	groqClient := llm.NewClient(llm.Config{
		BaseURL: cfg.AI.GroqBaseURL,
		APIKey:  cfg.AI.GroqAPIKey,
		Model:   cfg.AI.GroqModel,
		Timeout: cfg.AI.GenTimeout,
	})

	// 4. 初始化服务层与 Worker
	fetchClient := fetcher.New(cfg.Ingest.FetchTimeout, cfg.Ingest.FetchMaxBytes)
	textChunker := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)

	ingestSvc := service.NewIngestService(docRepo, d, fetchClient, textChunker, embedClient, d, d)
	querySvc := service.NewQueryService(embedClient, d, groqClient, cfg.Query.TopKDefault, cfg.Query.TopKMax)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	worker.NewIngestWorker(d, ingestSvc).Start(workerCtx, cfg.Ingest.Workers)

	// 5. 初始化 Handler
	ingestHandler := handler.NewIngestHandler(ingestSvc)
	queryHandler := handler.NewQueryHandler(querySvc)

	// 6. 初始化 Gin Web Server
	r := gin.Default()
	r.Use(middleware.TraceMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "X-Trace-Id"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 7. 注册路由
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		// 摄取任务
		api.POST("/documents", ingestHandler.Submit)
		api.GET("/documents/:id", ingestHandler.Status)
		api.POST("/documents/:id/reingest", ingestHandler.Reingest)
		api.DELETE("/documents/:id", ingestHandler.Delete)

		// 问答
		api.POST("/query", queryHandler.Query)
	}

	log.Printf("🚀 WebRAG 服务已启动，监听端口 :%s", cfg.App.Port)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatalf("❌ Server 启动失败: %v", err)
	}
}
