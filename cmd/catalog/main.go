package main

import (
	stdLog "log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/virtuallib/catalog-service/catalog/app"
	"github.com/virtuallib/catalog-service/catalog/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("no .env file, using process env")
	}
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
