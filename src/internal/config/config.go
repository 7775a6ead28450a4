package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs       LogsSettings     `mapstructure:"logs"`
	App        Application      `mapstructure:"app"`
	Database   Database         `mapstructure:"database"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Redis      Redis            `mapstructure:"redis"`
	Security   SecuritySettings `mapstructure:"security"`
	Server     ServerSettings   `mapstructure:"server"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Roster     RosterService    `mapstructure:"roster-service"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name     string `mapstructure:"name"`
	Timeout  int    `mapstructure:"timeout"`
	Version  string `mapstructure:"version"`
	HostLink string `mapstructure:"host-link"`
}

type Database struct {
	Url                  string `mapstructure:"url"`
	DbName               string `mapstructure:"dbname"`
	SessionCollection    string `mapstructure:"session-collection"`
	AttendanceCollection string `mapstructure:"attendance-collection"`
	Timeout              int    `mapstructure:"timeout"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url            string `mapstructure:"url"`
	Exchange       string `mapstructure:"exchange"`
	ExchangeType   string `mapstructure:"exchange-type"`
	RoutingKey     string `mapstructure:"routing-key"`
	ReconnectDelay int    `mapstructure:"reconnect-delay"`
	Timeout        int    `mapstructure:"timeout"`
	Durable        bool   `mapstructure:"durable"`
	AutoDelete     bool   `mapstructure:"auto-delete"`
	Internal       bool   `mapstructure:"internal"`
	NoWait         bool   `mapstructure:"no-wait"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type SecuritySettings struct {
	JwtKey      string `mapstructure:"jwt-key"`
	TokenSecret string `mapstructure:"token-secret"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

type CacheConfig struct {
	SessionExpirationMinutes int `mapstructure:"session-expiration-minutes"`
	RosterExpirationMinutes  int `mapstructure:"roster-expiration-minutes"`
}

type AttendanceConfig struct {
	GracePeriodSeconds      int  `mapstructure:"grace-period-seconds"`
	RotationIntervalSeconds int  `mapstructure:"rotation-interval-seconds"`
	RotationEnabled         bool `mapstructure:"rotation-enabled"`
	DefaultDurationMinutes  int  `mapstructure:"default-duration-minutes"`
	MaxDurationMinutes      int  `mapstructure:"max-duration-minutes"`
}

type RosterService struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

func Load() *Configuration {
	cfg := read()
	logrus.Info("Configuration loaded")

	// Override with environment variables
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey != "" {
		cfg.Security.JwtKey = jwtKey
	}

	tokenSecret := os.Getenv("TOKEN_SECRET")
	if tokenSecret != "" {
		cfg.Security.TokenSecret = tokenSecret
	}

	rosterUrl := os.Getenv("ROSTER_SERVICE_URL")
	if rosterUrl != "" {
		cfg.Roster.URL = rosterUrl
	}

	return cfg
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	var config Configuration

	err := viper.ReadInConfig()
	if err != nil {
		logrus.Panicf("Error reading config file, %s", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Panicf("Error unmarshalling config file, %s", err)
	}

	return &config
}
