package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LoyaltyEvents string `mapstructure:"loyalty_events"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type BusinessConfig struct {
	EarnPointsPerYuan      int64 `mapstructure:"earn_points_per_yuan"`      // 每消费 1 元返的积分
	DuplicateWindowSeconds int   `mapstructure:"duplicate_window_seconds"`  // 重复兑换回查窗口
	VoucherValidDays       int   `mapstructure:"voucher_valid_days"`        // 优惠券默认有效期
	RewardCacheSeconds     int   `mapstructure:"reward_cache_seconds"`      // 奖励目录缓存时长
	MaxRetryCount          int   `mapstructure:"max_retry_count"`           // outbox 消息最大重试次数
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	if config.Business.DuplicateWindowSeconds <= 0 {
		config.Business.DuplicateWindowSeconds = 60
	}
	if config.Business.VoucherValidDays <= 0 {
		config.Business.VoucherValidDays = 30
	}
	if config.Business.RewardCacheSeconds <= 0 {
		config.Business.RewardCacheSeconds = 300
	}

	return config
}
