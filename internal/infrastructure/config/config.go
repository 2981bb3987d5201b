package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`

	EventChannel string `env:"EVENT_CHANNEL" envDefault:"room-events"`

	MaxParticipants int           `env:"ROOM_MAX_PARTICIPANTS" envDefault:"50"`
	MaxQueue        int           `env:"ROOM_MAX_QUEUE" envDefault:"500"`
	ChatHistory     int           `env:"ROOM_CHAT_HISTORY" envDefault:"200"`
	MaxChatLength   int           `env:"ROOM_MAX_CHAT_LENGTH" envDefault:"1000"`
	ReconnectGrace  time.Duration `env:"ROOM_RECONNECT_GRACE" envDefault:"30s"`
	IdleGrace       time.Duration `env:"ROOM_IDLE_GRACE" envDefault:"5m"`
	SweepInterval   time.Duration `env:"ROOM_SWEEP_INTERVAL" envDefault:"30s"`
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}
