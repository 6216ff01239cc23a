package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/akimovaa/go-storefront-auth/internal/auth"
	"github.com/akimovaa/go-storefront-auth/internal/config"
	"github.com/akimovaa/go-storefront-auth/internal/httpclient"
	"github.com/akimovaa/go-storefront-auth/internal/pkg/log"
	"github.com/akimovaa/go-storefront-auth/internal/service"
	"github.com/akimovaa/go-storefront-auth/internal/tokens"
	"github.com/akimovaa/go-storefront-auth/internal/verify"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		configPath  string
		username    string
		password    string
		verifyEmail string
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&username, "username", "", "login to authenticate with")
	flag.StringVar(&password, "password", "", "password to authenticate with")
	flag.StringVar(&verifyEmail, "verify-email", "", "run the email verification flow for the given address")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := setupLogger(cfg.Env)
	slog.SetDefault(lg)
	lg.Info("starting storefront auth client", "env", cfg.Env, "base_url", cfg.API.BaseURL)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	ctx := log.Into(rootCtx, lg)

	store, err := tokens.FromConfig(ctx, cfg.Tokens)
	if err != nil {
		lg.Error("token_store_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	lg.Info("token_store_ready", "backend", cfg.Tokens.Backend)

	mgr := auth.New(store, auth.Config{
		BaseURL:     cfg.API.BaseURL,
		RefreshPath: cfg.Auth.RefreshPath,
		OnSessionExpired: func() {
			lg.Warn("session_expired", "action", "login required")
		},
	})

	api := httpclient.New(httpclient.Config{BaseURL: cfg.API.BaseURL, Auth: mgr})
	svc := service.New(api, mgr, cfg.Auth, cfg.Verification)

	if username != "" {
		claims, err := svc.Login(ctx, username, password)
		if err != nil {
			lg.Error("login_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		lg.Info("logged_in",
			"user_id", claims.UserID,
			"username", claims.Username,
			"role", claims.Role,
			"expires_at", claims.ExpiresAt,
		)
	}

	if claims, ok := svc.CurrentUser(ctx); ok {
		lg.Info("current_session", "username", claims.Username, "expired", mgr.IsAccessExpired(ctx))
	} else {
		lg.Info("no_active_session")
	}

	if verifyEmail != "" {
		if err := runEmailVerification(ctx, svc, verifyEmail); err != nil {
			lg.Error("verification_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}
}

// runEmailVerification — интерактивный прогон потока подтверждения e-mail:
// код читается со stdin, "resend" перезапускает отправку.
func runEmailVerification(ctx context.Context, svc *service.Service, email string) error {
	lg := log.From(ctx)

	done := make(chan struct{})

	sess := svc.EmailVerification(
		verify.WithSuccessCallback(func(target string) {
			lg.Info("email_verified", "target", target)
			close(done)
		}),
		verify.WithExpiredCallback(func() {
			lg.Warn("code_expired", "hint", "type 'resend' for a new code")
		}),
	)
	defer sess.Close()

	if err := sess.Send(ctx, email); err != nil {
		return err
	}

	snap := sess.Snapshot()
	fmt.Printf("code sent to %s, window %s\n", snap.Target, verify.FormatRemaining(snap.SecondsRemaining))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("[%s] code> ", verify.FormatRemaining(sess.Remaining()))
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "resend":
			if err := sess.Resend(ctx); err != nil {
				fmt.Printf("resend failed: %v\n", err)
				continue
			}
			fmt.Println("code re-sent")
		default:
			err := sess.Confirm(ctx, input)
			switch {
			case err == nil:
				<-done
				return nil
			default:
				fmt.Printf("verification failed: %v\n", err)
			}
		}
	}
}

// setupLogger настраивает slog-хендлер под окружение.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
