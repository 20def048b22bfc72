package main

import (
	"flag"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nithiyan25/reviewtrack/internal/app"
	"github.com/nithiyan25/reviewtrack/internal/bot"
)

func main() {
	var configPath = flag.String("config", "bot.toml", "Path to config file")
	flag.Parse()

	config, err := bot.ReadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}

	store, err := app.NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		logger.Error.Fatalf("Failed to init store: %v", err)
	}
	defer store.Close()

	opt, err := redis.ParseURL(config.Auth.RedisURL)
	if err != nil {
		logger.Error.Fatalf("Failed to parse redis URL: %v", err)
	}
	tokens := app.NewTokenManager(redis.NewClient(opt))
	defer tokens.Close()

	b, err := bot.New(config, store, tokens)
	if err != nil {
		logger.Error.Fatalf("Failed to create bot: %v", err)
	}

	logger.Info.Println("Starting reviewtrack bot")
	if err := b.Start(); err != nil {
		logger.Error.Fatalf("Bot failed: %v", err)
	}
}
