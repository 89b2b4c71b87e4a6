package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/database"
	"destek.link/services"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "destek-db",
	Short: "destek.link veritabanı araçları",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configs.LoadEnv()
		configslog.InitLogger()
		configs.InitDB()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		configs.CloseDB()
		configslog.SyncLogger()
	},
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Tabloları oluşturur / günceller",
	RunE: func(cmd *cobra.Command, args []string) error {
		configslog.SLog.Info("Veritabanı başlatma işlemi çalıştırılıyor...")
		if err := database.Initialize(configs.GetDB()); err != nil {
			return err
		}
		configslog.SLog.Info("Veritabanı başlatma işlemi tamamlandı.")
		return nil
	},
}

var olderThanDays int

var purgeCmd = &cobra.Command{
	Use:   "purge-drafts",
	Short: "Uzun süredir kaydedilmemiş taslakları ve eklerini siler",
	RunE: func(cmd *cobra.Command, args []string) error {
		if olderThanDays <= 0 {
			return fmt.Errorf("--older-than-days pozitif olmalı")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		if err := configs.InitBlobStore(ctx); err != nil {
			return err
		}
		n, err := services.NewDraftService().PurgeStale(ctx, time.Duration(olderThanDays)*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d taslak silindi\n", n)
		return nil
	},
}

func init() {
	purgeCmd.Flags().IntVar(&olderThanDays, "older-than-days", configs.GetEnvInt("DRAFT_RETENTION_DAYS", 30), "bu kadar günden eski taslaklar silinir")
	rootCmd.AddCommand(migrateCmd, purgeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
