package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"icefire/levels"
	"icefire/server"
)

// icefire 入口：加载配置与关卡，启动 TCP 游戏服务与管理 HTTP 服务
func main() {
	var (
		cfgPath string
		port    int
		admin   string
		tick    int
		logFile string
	)
	flag.StringVar(&cfgPath, "config", "", "path to a YAML config file")
	flag.IntVar(&port, "port", 0, "game listen port (default 9527)")
	flag.StringVar(&admin, "admin", "", "admin HTTP listen address, e.g. :8080")
	flag.IntVar(&tick, "tick", 0, "ticks per second (default 30)")
	flag.StringVar(&logFile, "log", "", "log file path")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// 命令行参数覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = port
		case "admin":
			cfg.AdminAddr = admin
		case "tick":
			cfg.TickRate = tick
		case "log":
			cfg.Log.File = logFile
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// 使用第三方 zap 日志库写入滚动日志文件
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	catalog, err := loadCatalog(cfg.LevelsDir)
	if err != nil {
		server.Log.Fatalf("load levels: %v", err)
	}
	server.Log.Infof("loaded %d levels", catalog.Len())

	// 优雅退出（Ctrl+C）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, catalog)
	server.Log.Infof("icefire starting: port=%d admin=%s tick=%d", cfg.Port, cfg.AdminAddr, cfg.TickRate)
	if err := srv.ListenAndServe(ctx); err != nil {
		server.Log.Errorf("server stopped: %v", err)
		server.SyncLogger()
		os.Exit(1)
	}
	server.Log.Info("Shutting down...")
}

// loadCatalog 优先读取配置的关卡目录，否则使用内置关卡
func loadCatalog(dir string) (*levels.Catalog, error) {
	if dir == "" {
		return levels.Builtin()
	}
	return levels.Load(os.DirFS(dir), "*.yaml")
}
