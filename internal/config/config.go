package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type GameConfig struct {
	StartingChips     int64 `mapstructure:"startingChips"`
	DefaultMaxPlayers int   `mapstructure:"defaultMaxPlayers"`
	MinBuyInBB        int64 `mapstructure:"minBuyInBB"`
	MaxBuyInBB        int64 `mapstructure:"maxBuyInBB"`
	RoomCodeLength    int   `mapstructure:"roomCodeLength"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	applyGameDefaults(&cfg.Game)
	GlobalConfig = &cfg
}

func applyGameDefaults(g *GameConfig) {
	if g.StartingChips <= 0 {
		g.StartingChips = 10000
	}
	if g.DefaultMaxPlayers <= 0 {
		g.DefaultMaxPlayers = 8
	}
	if g.MinBuyInBB <= 0 {
		g.MinBuyInBB = 20
	}
	if g.MaxBuyInBB <= 0 {
		g.MaxBuyInBB = 200
	}
	if g.RoomCodeLength <= 0 {
		g.RoomCodeLength = 6
	}
}
