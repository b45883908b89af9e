package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staking-rewards-system/internal/config"
	"staking-rewards-system/internal/handler"
	"staking-rewards-system/internal/models"
	"staking-rewards-system/internal/repository"
	"staking-rewards-system/internal/scheduler"
	"staking-rewards-system/internal/service"
	"staking-rewards-system/pkg/errors"
	"staking-rewards-system/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer closeDatabase(db)

	if err := migrate(db); err != nil {
		logger.Fatal("Failed to migrate database:", err)
	}

	stakeRepo := repository.NewStakeRepository(db)
	protocolRepo := repository.NewProtocolRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	perfRepo := repository.NewPerformanceRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	rewardSvc := service.NewRewardService(stakeRepo, rewardRepo, protocolRepo, cfg.Rewards.CompoundMinAgeDays)
	statsSvc := service.NewStatisticsService(stakeRepo, rewardRepo, protocolRepo, statsRepo, perfRepo)
	snapshotSvc := service.NewSnapshotService(stakeRepo, rewardRepo, protocolRepo, snapshotRepo, cfg.Rewards.SnapshotRetentionDays)

	cronScheduler := scheduler.NewCronScheduler(rewardSvc, statsSvc, snapshotSvc, cfg.Cron)
	if cfg.Cron.Enabled {
		if err := cronScheduler.Start(); err != nil {
			logger.Fatal("Failed to start scheduler:", err)
		}
		defer cronScheduler.Stop()
	}

	router := setupHTTPRouter(cronScheduler, rewardRepo, statsRepo, snapshotRepo)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting on port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error:", err)
	}

	logger.Info("Server stopped")
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	// TranslateError maps postgres unique violations to
	// gorm.ErrDuplicatedKey, which the engines treat as an idempotent skip.
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, errors.New(errors.ErrDatabaseConnect, "failed to open database connection", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.New(errors.ErrDatabaseConnect, "failed to access connection pool", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Protocol{},
		&models.Stake{},
		&models.Reward{},
		&models.UserStatistics{},
		&models.ProtocolPerformance{},
		&models.PortfolioSnapshot{},
	)
}

func closeDatabase(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get database instance:", err)
		return
	}
	sqlDB.Close()
}

func setupHTTPRouter(cronScheduler *scheduler.CronScheduler, rewardRepo *repository.RewardRepository, statsRepo *repository.StatisticsRepository, snapshotRepo *repository.SnapshotRepository) http.Handler {
	router := http.NewServeMux()

	cronHandler := handler.NewCronHandler(cronScheduler)
	rewardsHandler := handler.NewRewardsHandler(rewardRepo)
	statsHandler := handler.NewStatisticsHandler(statsRepo)
	portfolioHandler := handler.NewPortfolioHandler(snapshotRepo)

	router.HandleFunc("/api/cron/trigger", cronHandler.TriggerRewardCalculation)
	router.HandleFunc("/api/cron/trigger-daily-stats", cronHandler.TriggerDailyStats)
	router.HandleFunc("/api/cron/trigger-weekly-stats", cronHandler.TriggerWeeklyStats)
	router.HandleFunc("/api/cron/trigger-monthly-stats", cronHandler.TriggerMonthlyStats)
	router.HandleFunc("/api/cron/trigger-snapshots", cronHandler.TriggerSnapshots)
	router.HandleFunc("/api/cron/status", cronHandler.GetStatus)
	router.HandleFunc("/api/cron/health", cronHandler.GetHealth)
	router.HandleFunc("/api/rewards/", rewardsHandler.ListRewards)
	router.HandleFunc("/api/statistics/", statsHandler.GetStatistics)
	router.HandleFunc("/api/portfolio/", portfolioHandler.GetPortfolio)
	router.HandleFunc("/health", handler.HandleHealth)

	return router
}
