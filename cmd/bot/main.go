package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tennisluv/internal/app"
	"tennisluv/internal/bot"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram.bot_token is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, "bot-main")
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Logger

	api, err := bot.NewAPI(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Error().Err(err).Msg("create telegram api")
		return err
	}

	telegramBot := bot.NewBot(api, bot.Deps{
		Config:        cfg.Bot,
		Sessions:      a.Sessions,
		Booking:       a.Booking,
		Accounts:      a.Accounts,
		Admin:         a.Admin,
		SheetsEnabled: a.SheetsEnabled(),
		Logger:        logger,
	})

	a.Run(ctx)
	logger.Info().Msg("bot started")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
