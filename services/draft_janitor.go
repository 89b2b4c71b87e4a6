package services

import (
	"context"
	"time"

	"destek.link/configs/configslog"

	"go.uber.org/zap"
)

// RunDraftJanitor ctx iptal edilene kadar her interval'de eski taslakları siler.
func RunDraftJanitor(ctx context.Context, drafts IDraftService, interval, retention time.Duration) error {
	if interval <= 0 || retention <= 0 {
		configslog.SLog.Warn("Taslak temizleyici devre dışı")
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := drafts.PurgeStale(ctx, retention); err != nil && ctx.Err() == nil {
				configslog.Log.Error("Eski taslaklar silinemedi", zap.Error(err))
			}
		}
	}
}
