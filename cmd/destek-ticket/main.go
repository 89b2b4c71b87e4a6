// destek-ticket terminalden destek talebi açar. Yazılanlar sunucuya taslak
// olarak kaydedilir; program kapanıp yeniden açıldığında taslak geri yüklenir.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/pkg/apiclient"
	"destek.link/pkg/autosave"
	"destek.link/pkg/formschema"
	"destek.link/tui/ticketform"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const kind = "ticket"

var (
	serverURL   string
	source      string
	logFile     string
	sessionFile string
	drainWait   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "destek-ticket",
	Short:        "Terminalden destek talebi oluşturur",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logFile == "" {
			return nil
		}
		return configslog.InitFileLogger(logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		configslog.SyncLogger()
	},
	RunE: run,
}

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Sunucudaki taslağı siler",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DiscardDraft(cmd.Context(), kind); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Taslak silindi.")
		return nil
	},
}

func init() {
	configs.LoadEnv()
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", configs.GetEnv("DESTEK_SERVER", "http://localhost:3000"), "destek.link sunucu adresi")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", defaultSessionFile(), "oturum çerezinin saklandığı dosya")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "logların yazılacağı dosya (boşsa log tutulmaz)")
	rootCmd.Flags().StringVar(&source, "source", "tui", "talebin kaynağı; gönderimle saklanır, taslağa kaydedilmez")
	rootCmd.Flags().DurationVar(&drainWait, "drain-timeout", 3*time.Second, "çıkışta kapanış taslağı için beklenecek süre")
	rootCmd.AddCommand(discardCmd)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".destek-session.json"
	}
	return filepath.Join(dir, "destek", "session.json")
}

func newClient() (*apiclient.Client, error) {
	client, err := apiclient.New(serverURL, apiclient.WithLogger(configslog.Log))
	if err != nil {
		return nil, err
	}
	if err := client.LoadSession(sessionFile); err != nil {
		configslog.Log.Warn("Oturum dosyası okunamadı", zap.String("path", sessionFile), zap.Error(err))
	}
	return client, nil
}

func run(cmd *cobra.Command, args []string) error {
	schema, ok := formschema.Default().Get(kind)
	if !ok {
		return fmt.Errorf("%s form tanımı bulunamadı", kind)
	}
	client, err := newClient()
	if err != nil {
		return err
	}

	initial, fields := restoreDraft(cmd.Context(), client)
	fields = append(fields, autosave.Field{Name: "source", Value: autosave.Text(source)})

	opts := []autosave.Option{
		autosave.WithLogger(configslog.Log),
		autosave.WithLifecycle(autosave.NewSignalLifecycle()),
		autosave.WithTransient(schema.TransientFields()...),
		autosave.WithInitial(fields...),
		autosave.WithValidator(func(values map[string]any) error {
			normalized, err := schema.NormalizeSubmission(values)
			if err != nil {
				return err
			}
			return schema.Validate(normalized)
		}),
	}
	if rule := schema.Attachment; rule != nil {
		opts = append(opts, autosave.WithAttachmentRules(autosave.AttachmentRules{
			MaxBytes:     rule.MaxBytes,
			AllowedTypes: rule.AllowedTypes,
		}))
	}

	form := autosave.New(kind, autosave.Collaborators{
		Drafts: client,
		Submit: client,
		Upload: client.Uploader(kind),
		Beacon: client,
	}, opts...)

	final, runErr := tea.NewProgram(ticketform.New(form, initial), tea.WithAltScreen()).Run()

	// Kapanış: bekleyen taslak beacon ile gönderilir ve beklenir.
	form.Close()
	if !client.Drain(drainWait) {
		configslog.Log.Warn("Kapanış taslağı zaman aşımına uğradı", zap.Duration("timeout", drainWait))
	}
	if err := client.SaveSession(sessionFile); err != nil {
		configslog.Log.Warn("Oturum dosyası yazılamadı", zap.String("path", sessionFile), zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	if m, ok := final.(ticketform.Model); ok {
		if rc, ok := m.Receipt(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Talebiniz alındı. Takip numarası: %s\n", rc.ID)
			return nil
		}
	}
	if form.State() == autosave.StateEditing {
		fmt.Fprintln(cmd.OutOrStdout(), "Taslak kaydedildi, kaldığınız yerden devam edebilirsiniz.")
	}
	return nil
}

// restoreDraft sunucudaki açık taslağı forma ve arayüze başlangıç değeri olarak döndürür.
func restoreDraft(ctx context.Context, client *apiclient.Client) (ticketform.Initial, []autosave.Field) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	d, err := client.LoadDraft(ctx, kind)
	if err != nil {
		if !errors.Is(err, apiclient.ErrNoDraft) {
			configslog.Log.Warn("Taslak geri yüklenemedi", zap.Error(err))
		}
		return ticketform.Initial{}, nil
	}

	var initial ticketform.Initial
	var fields []autosave.Field
	if s, ok := d.Fields[ticketform.FieldSubject].(string); ok && s != "" {
		initial.Subject = s
		fields = append(fields, autosave.Field{Name: ticketform.FieldSubject, Value: autosave.Text(s)})
	}
	if s, ok := d.Fields[ticketform.FieldProblem].(string); ok && s != "" {
		initial.Problem = s
		fields = append(fields, autosave.Field{Name: ticketform.FieldProblem, Value: autosave.Text(s)})
	}
	if d.Attachment != nil {
		initial.ScreenshotNote = d.Attachment.Name
	}
	configslog.Log.Info("Taslak geri yüklendi", zap.Int("revision", d.Revision), zap.Time("saved_at", d.SavedAt))
	return initial, fields
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
