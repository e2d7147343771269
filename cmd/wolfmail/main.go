// Package main is the entry point for the wolfmail outbound mail sender.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/config"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/mail"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/provider"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/provider/relay"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/provider/ses"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/provider/stdout"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/smtp"
	wstls "github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/tls"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	to := flag.String("to", "", "recipient address (required)")
	subject := flag.String("subject", "", "message subject")
	body := flag.String("body", "", "message body (read from stdin if empty)")
	replyTo := flag.String("reply-to", "", "reply-to address (optional)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if *to == "" {
		slog.Error("recipient is required (-to)")
		os.Exit(1)
	}

	msgBody := *body
	if msgBody == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			slog.Error("failed to read message body from stdin", "error", err)
			os.Exit(1)
		}
		msgBody = strings.TrimRight(string(data), "\n")
	}

	// Select mail delivery provider
	prov := selectProvider(cfg)

	slog.Info("sending message",
		"provider", prov.Name(),
		"to", *to,
	)

	// Cancel the send on SIGTERM/SIGINT
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, cancelling send", "signal", sig)
		cancel()
	}()

	msg := &mail.Message{
		To:      *to,
		Subject: *subject,
		Body:    msgBody,
		ReplyTo: *replyTo,
	}

	if err := prov.Send(ctx, msg); err != nil {
		slog.Error("delivery failed", "provider", prov.Name(), "error", err)
		os.Exit(1)
	}

	slog.Info("message sent", "provider", prov.Name(), "to", *to)
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// relayOptions maps the relay configuration onto sender options.
func relayOptions(cfg *config.Config) smtp.Options {
	opts := smtp.Options{
		Host:           cfg.Relay.Host,
		Port:           cfg.Relay.Port,
		Username:       cfg.Relay.Username,
		Password:       cfg.Relay.Password,
		Sender:         cfg.Relay.Sender,
		HeloDomain:     cfg.Relay.HeloDomain,
		ConnectTimeout: cfg.Relay.ConnectTimeout.Std(),
		ReadTimeout:    cfg.Relay.ReadTimeout.Std(),
	}
	if cfg.Relay.InsecureSkipVerify {
		opts.TLSConfig = wstls.ClientConfig(cfg.Relay.Host, true)
	}
	return opts
}

// selectProvider chooses the mail delivery backend based on configuration.
// If the provider setting is empty, it falls back to auto-detection
// (relay if configured, else SES if configured, else stdout).
func selectProvider(cfg *config.Config) provider.Provider {
	switch cfg.Provider {
	case "relay":
		if !cfg.RelayConfigured() {
			slog.Error("relay provider selected but RELAY_HOST, RELAY_USERNAME, RELAY_PASSWORD, and RELAY_SENDER are required")
			os.Exit(1)
		}
		slog.Info("using SMTP relay provider",
			"host", cfg.Relay.Host,
			"port", cfg.Relay.Port,
			"sender", cfg.Relay.Sender,
		)
		return relay.New(relayOptions(cfg))

	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("SES provider selected but SES_REGION and SES_SENDER are required")
			os.Exit(1)
		}
		slog.Info("using AWS SES provider",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		p, err := ses.New(context.Background(), ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			slog.Error("failed to create SES provider", "error", err)
			os.Exit(1)
		}
		return p

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New()

	case "":
		// Auto-detection fallback
		if cfg.RelayConfigured() {
			slog.Info("using SMTP relay provider (auto-detected)",
				"host", cfg.Relay.Host,
				"sender", cfg.Relay.Sender,
			)
			return relay.New(relayOptions(cfg))
		}
		if cfg.SESConfigured() {
			slog.Info("using AWS SES provider (auto-detected)",
				"region", cfg.SES.Region,
				"sender", cfg.SES.Sender,
			)
			p, err := ses.New(context.Background(), ses.SESProviderConfig{
				Region:          cfg.SES.Region,
				AccessKeyID:     cfg.SES.AccessKeyID,
				SecretAccessKey: cfg.SES.SecretAccessKey,
				Sender:          cfg.SES.Sender,
			})
			if err != nil {
				slog.Error("failed to create SES provider", "error", err)
				os.Exit(1)
			}
			return p
		}
		slog.Info("no provider configured, using stdout provider")
		return stdout.New()

	default:
		slog.Error("unknown provider", "provider", cfg.Provider)
		os.Exit(1)
		return nil
	}
}
