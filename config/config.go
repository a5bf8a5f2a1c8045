package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr       string   `yaml:"addr"`
	CORSOrigin []string `yaml:"corsOrigin"`
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod
	Service   string `yaml:"service"` // presence-service
	Version   string `yaml:"version"` // v0.1.0
	Backend   string `yaml:"backend"` // std|zap
	File      string `yaml:"file"`    // optional rolling log file (zap backend)
	AddSource bool   `yaml:"addSource"`
	Debug     bool   `yaml:"debug"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type World struct {
	MapWidth        float64       `yaml:"mapWidth"`
	MapHeight       float64       `yaml:"mapHeight"`
	ProximityRadius float64       `yaml:"proximityRadius"`
	SessionTTL      time.Duration `yaml:"sessionTTL"`
}

type Admin struct {
	Token string `yaml:"token"`
}

type NPC struct {
	BaseURL   string        `yaml:"baseUrl"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"maxTokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Config struct {
	HTTP     HTTP     `yaml:"http"`
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	World    World    `yaml:"world"`
	Admin    Admin    `yaml:"admin"`
	NPC      NPC      `yaml:"npc"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.World.MapWidth < 0 || c.World.MapHeight < 0 {
		return fmt.Errorf("world: map size must be non-negative (%v x %v)", c.World.MapWidth, c.World.MapHeight)
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.World.MapWidth == 0 {
		c.World.MapWidth = 800
	}
	if c.World.MapHeight == 0 {
		c.World.MapHeight = 600
	}
	if c.World.ProximityRadius == 0 {
		c.World.ProximityRadius = 150
	}
	if c.World.SessionTTL == 0 {
		c.World.SessionTTL = 24 * time.Hour
	}
	if c.Admin.Token == "" {
		// demo default, override in any real deployment
		c.Admin.Token = "admin123"
	}
	if c.NPC.Model == "" {
		c.NPC.Model = "claude-3-5-sonnet-20241022"
	}
	if c.NPC.MaxTokens == 0 {
		c.NPC.MaxTokens = 1024
	}
	if c.NPC.Timeout == 0 {
		c.NPC.Timeout = 60 * time.Second
	}
	return nil
}
