package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/homecase-users/internal/infra/config"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
	"github.com/mkrupp/homecase-users/internal/infra/transport/http"
	"github.com/mkrupp/homecase-users/internal/repo/user"
	"github.com/mkrupp/homecase-users/internal/svc/usersvc"
)

const (
	appName = "demo"
	svcName = "usersvc"
)

type Config struct {
	config.EnvConfig

	Log  logging.LoggerConfig            `envPrefix:"LOG_"`
	HTTP usersvc.HTTPTransportConfig     `envPrefix:"HTTP_"`
	User user.SQLiteUserRepositoryConfig `envPrefix:"USER_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.usersvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	userSvc, err := usersvc.NewUserService(user.SQLiteUserRepositoryFactory(cfg.User))
	if err != nil {
		return fmt.Errorf("new user service: %w", err)
	}

	defer func() {
		if closeErr := userSvc.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close user service: %w", closeErr))
		}
	}()

	httpTransport := usersvc.NewHTTPTransport(userSvc, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
