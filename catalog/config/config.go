package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/virtuallib/catalog-service/pkg/auth"
	"github.com/virtuallib/catalog-service/pkg/kafka"
	"github.com/virtuallib/catalog-service/pkg/logger"
	"github.com/virtuallib/catalog-service/pkg/postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"CATALOG_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"CATALOG_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"30s"`
	WriteTimeout time.Duration
}

type App struct {
	SetupKey       string        `yaml:"setupKey" envconfig:"SETUP_KEY"`
	ReservationTTL time.Duration `yaml:"reservationTTL" envconfig:"RESERVATION_TTL" default:"72h"`
	ExpireInterval time.Duration `yaml:"expireInterval" envconfig:"EXPIRE_INTERVAL" default:"1h"`
}

type Config struct {
	Server   HTTPServer   `yaml:"server"`
	App      App          `yaml:"app"`
	Database postgres.DB  `yaml:"db"`
	Kafka    kafka.Config `yaml:"kafka"`
	JWT      auth.Config  `yaml:"jwt"`
	Log      logger.Log   `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		// options run after Process so tag defaults cannot clobber them
		for _, op := range ops {
			op(&config)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	redacted := *cfg
	redacted.JWT.Secret = "***"
	redacted.Database.Password = "***"
	jscfg, _ := json.MarshalIndent(redacted, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
