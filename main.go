package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liaosimin/pictora/internal/config"
	"github.com/liaosimin/pictora/internal/consts"
	"github.com/liaosimin/pictora/internal/db"
	"github.com/liaosimin/pictora/internal/handler"
	"github.com/liaosimin/pictora/internal/repository"
	"github.com/liaosimin/pictora/internal/router"
	"github.com/liaosimin/pictora/internal/service"
	"github.com/liaosimin/pictora/pkg/openai"
	"github.com/liaosimin/pictora/pkg/wechat"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "config", "配置文件目录")
	flag.Parse()

	config.InitConfig(*configDir)
	cfg := config.Get()

	// 数据库连接在此构造一次，后续全部通过注入传递
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("✅ 数据库(%s)连接成功，表结构已同步", cfg.Database.Type)

	// 上传与生成结果目录
	for _, dir := range []string{cfg.Upload.Path, cfg.Upload.ResultPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("❌ 无法创建目录 %s: %v", dir, err)
		}
	}

	// 外部接口客户端
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("❌ 日志初始化失败: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	wechatClient := wechat.NewClient(cfg.WeChat.AppID, cfg.WeChat.AppSecret, cfg.WeChat.BaseURL, zapLogger)
	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, zapLogger)

	// 可选 Redis 缓存
	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cache.Ping(pingCtx).Err(); err != nil {
			log.Printf("⚠️ Redis 连接失败，缓存停用: %v", err)
			cache = nil
		}
		cancel()
	}

	repos := repository.NewRepositories(
		repository.NewUserRepository(gdb),
		repository.NewCreditRepository(gdb),
		repository.NewStyleRepository(gdb),
		repository.NewTaskRepository(gdb),
	)
	appService := service.NewAppService(repos, wechatClient, openaiClient, cache, cfg.Redis.Prefix)
	h := handler.NewHandler(appService)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	router.NewRouter(h, repos.User).Init(r)

	// 上传原图与生成结果的静态访问
	r.StaticFS("/uploads", gin.Dir(cfg.Upload.Path, false))
	r.StaticFS("/results", gin.Dir(cfg.Upload.ResultPath, false))

	printWelcomeMessage()

	// 停机配置
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 服务启动成功，运行在 :%s\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ 服务启动失败: %s\n", err)
		}
	}()

	// 等待中断信号关闭服务器（设置 5 秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ 服务强制关闭:", err)
	}
	log.Println("✅ 服务已退出")
}

func printWelcomeMessage() {
	fmt.Println()
	fmt.Println(" ┌───────────────────────────────────────────────────────┐")
	fmt.Printf(" │   🎨  %s\n", consts.ApplicationName)
	fmt.Println(" ├───────────────────────────────────────────────────────┤")
	fmt.Printf(" │   📦  版本     : %s\n", consts.ApplicationVersion)
	fmt.Printf(" │   🔥  服务端口 : %s\n", config.Get().Server.Port)
	fmt.Println(" └───────────────────────────────────────────────────────┘")
	fmt.Println()
}
