package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ledgermail/ledgermail/internal/compose"
	"github.com/ledgermail/ledgermail/internal/config"
	"github.com/ledgermail/ledgermail/internal/domain"
	"github.com/ledgermail/ledgermail/internal/infra/database"
	"github.com/ledgermail/ledgermail/internal/infra/database/migrations"
	infraredis "github.com/ledgermail/ledgermail/internal/infra/redis"
	"github.com/ledgermail/ledgermail/internal/observability"
	"github.com/ledgermail/ledgermail/internal/provider"
	"github.com/ledgermail/ledgermail/internal/repository"
	"github.com/ledgermail/ledgermail/internal/runlock"
	"github.com/ledgermail/ledgermail/internal/service"
	"github.com/ledgermail/ledgermail/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
	"gorm.io/gorm"
)

const (
	transportSMTP    = "smtp"
	transportWebhook = "webhook"
)

var (
	addressFile   string
	recipientCSV  string
	messageFile   string
	accountFile   string
	subject       string
	transportName string
	htmlBody      bool
	attachFiles   []string
	concurrency   int
)

var rootCmd = &cobra.Command{
	Use:   "ledgermail",
	Short: "Resumable bulk mail dispatch with a durable delivery ledger",
	Long: `ledgermail sends a message to a list of recipients and records every
attempt in a durable ledger, so interrupted or partially failed runs can be
re-run without delivering the same message to the same recipient twice.`,
	SilenceUsage: true,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send the message to every recipient that has not received it yet",
	RunE:  runSend,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which recipients are still pending for the message, without sending",
	RunE:  runStatus,
}

func init() {
	for _, cmd := range []*cobra.Command{sendCmd, statusCmd} {
		cmd.Flags().StringVar(&addressFile, "address-file", "", "file with one recipient email address per line")
		cmd.Flags().StringVar(&recipientCSV, "recipient-csv", "", "CSV with an 'address' column plus template fields")
		cmd.Flags().StringVar(&messageFile, "message-file", "", "file containing the body text for the email")
		_ = cmd.MarkFlagRequired("message-file")
	}

	sendCmd.Flags().StringVar(&accountFile, "account-file", "", "YAML file with the sending account configuration")
	sendCmd.Flags().StringVar(&subject, "subject", "", "subject for the email")
	sendCmd.Flags().StringVar(&transportName, "transport", transportSMTP, "transport to use: smtp or webhook")
	sendCmd.Flags().BoolVar(&htmlBody, "html", false, "send the body as text/html instead of text/plain")
	sendCmd.Flags().StringArrayVar(&attachFiles, "attach", nil, "file to attach to every message (repeatable)")
	sendCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel send workers (overrides SEND_CONCURRENCY)")
	_ = sendCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency = concurrency
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := observability.WithRunID(cmd.Context(), uuid.NewString())
	log := observability.WithContextLogger(logger, ctx)

	recipients, templated, err := loadRecipients()
	if err != nil {
		return err
	}
	text, err := source.ReadMessageFile(messageFile)
	if err != nil {
		return err
	}
	fp := domain.FingerprintText(text)

	log.Info("run starting",
		zap.String("fingerprint", fp.Short()),
		zap.Int("totalRecipients", len(recipients)),
		zap.String("transport", transportName),
	)

	prov, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	db, ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	locker, closeLocker, err := buildLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	release, err := locker.Acquire(ctx, fp)
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return fmt.Errorf("%w; wait for it to finish or let the lock expire", err)
		}
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	satisfied, pending, err := service.Partition(ctx, ledger, fp, recipients)
	if err != nil {
		return err
	}
	log.Info("partitioned recipients",
		zap.Int("alreadySent", len(satisfied)),
		zap.Int("pending", len(pending)),
	)

	if len(pending) == 0 {
		log.Info("no more messages to send")
		return nil
	}

	builder, err := compose.NewBuilder(subject, text, compose.Options{
		HTML:        htmlBody,
		Templated:   templated,
		Attachments: attachFiles,
	})
	if err != nil {
		return err
	}

	dispatcher, err := service.NewDispatcher(ledger, prov, builder, cfg.Concurrency, logger)
	if err != nil {
		return err
	}

	summary, err := dispatcher.Run(ctx, fp, pending)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		log.Warn("run finished with failures",
			zap.Int("attempted", summary.Attempted),
			zap.Int("failed", summary.Failed),
		)
		for address, detail := range summary.Failures {
			log.Warn("recipient failed",
				zap.String("recipient", address),
				zap.String("detail", detail),
			)
		}
		return fmt.Errorf("failed to send %d of %d messages", summary.Failed, summary.Attempted)
	}

	log.Info("all messages sent successfully", zap.Int("attempted", summary.Attempted))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	recipients, _, err := loadRecipients()
	if err != nil {
		return err
	}
	text, err := source.ReadMessageFile(messageFile)
	if err != nil {
		return err
	}
	fp := domain.FingerprintText(text)

	db, ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db, logger)

	satisfied, pending, err := service.Partition(cmd.Context(), ledger, fp, recipients)
	if err != nil {
		return err
	}

	logger.Info("delivery status",
		zap.String("fingerprint", fp.Short()),
		zap.Int("alreadySent", len(satisfied)),
		zap.Int("pending", len(pending)),
	)
	for _, recipient := range pending {
		fmt.Println(recipient.Address)
	}
	return nil
}

func loadRecipients() ([]domain.Recipient, bool, error) {
	switch {
	case addressFile != "" && recipientCSV != "":
		return nil, false, fmt.Errorf("--address-file and --recipient-csv are mutually exclusive")
	case recipientCSV != "":
		recipients, err := source.ReadRecipientCSV(recipientCSV)
		return recipients, true, err
	case addressFile != "":
		recipients, err := source.ReadAddressFile(addressFile)
		return recipients, false, err
	default:
		return nil, false, fmt.Errorf("one of --address-file or --recipient-csv is required")
	}
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch transportName {
	case transportSMTP:
		if accountFile == "" {
			return nil, fmt.Errorf("--account-file is required for the smtp transport")
		}
		account, err := config.LoadAccount(accountFile)
		if err != nil {
			return nil, err
		}
		if account.Password == "" {
			account.Password, err = promptPassword()
			if err != nil {
				return nil, err
			}
		}
		return provider.NewSMTPProvider(account)
	case transportWebhook:
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL must be set for the webhook transport")
		}
		return provider.NewWebhookProvider(cfg.WebhookURL)
	default:
		return nil, fmt.Errorf("unknown transport %q", transportName)
	}
}

func openLedger(cfg *config.Config) (*gorm.DB, repository.AttemptRepository, error) {
	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("ledger migrations failed: %w", err)
	}
	return db, repository.NewGormAttemptRepo(db), nil
}

func buildLocker(cfg *config.Config) (runlock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return runlock.Noop{}, func() {}, nil
	}

	client, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	locker, err := runlock.NewRedisLocker(client, time.Duration(cfg.RunLockTTLSec)*time.Second)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return locker, func() { _ = client.Close() }, nil
}

func closeDB(db *gorm.DB, logger *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("failed to get underlying sql.DB", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("failed to close ledger database", zap.Error(err))
	}
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Type your password and press enter: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
