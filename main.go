package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/database"
	"destek.link/routes"
	"destek.link/services"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configs.LoadEnv()
	configslog.InitLogger()
	defer configslog.SyncLogger()

	cfg := configs.LoadAppConfig()

	configs.InitDB()
	defer configs.CloseDB()
	if configs.GetEnvBool("DB_AUTO_MIGRATE", !cfg.IsProduction()) {
		if err := database.Initialize(configs.GetDB()); err != nil {
			configslog.Log.Fatal("Migrasyon başarısız oldu", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := configs.InitBlobStore(ctx); err != nil {
		configslog.Log.Fatal("Ek dosya deposu kurulamadı", zap.Error(err))
	}

	app := routes.NewApp(cfg)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		configslog.SLog.Infof("Sunucu başlatılıyor: :%s", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		return services.RunDraftJanitor(gctx, services.NewDraftService(), cfg.JanitorInterval, cfg.DraftRetention)
	})
	g.Go(func() error {
		<-gctx.Done()
		configslog.SLog.Info("Sunucu kapatılıyor...")
		return app.ShutdownWithTimeout(cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		configslog.Log.Error("Sunucu hata ile durdu", zap.Error(err))
		configslog.SyncLogger()
		configs.CloseDB()
		os.Exit(1)
	}
	configslog.SLog.Info("Sunucu durdu")
}
