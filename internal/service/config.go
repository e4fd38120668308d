// internal/service/config.go
package service

import (
	"log"

	"github.com/spf13/viper"

	"orderflow-engine/internal/indicator"
)

type InstanceConfig struct {
	Symbol     string
	Bars       BarConfig
	Indicators indicator.EnrichConfig
}

type Config struct {
	Exchange  ExchangeConfig            `mapstructure:"Exchange"`
	Output    OutputConfig              `mapstructure:"Output"`
	Instances map[string]InstanceConfig `mapstructure:"Instances"`
}

// ExchangeConfig 定义了行情源的连接信息
type ExchangeConfig struct {
	Name  string
	WSURL string
}

// OutputConfig 定义了 Bar 落盘方式
type OutputConfig struct {
	Dir    string // 输出目录
	Format string // csv | parquet
}

// BarConfig 定义了 Tick -> Bar 聚合参数
// Interval 字符串与 TickSideLogic 的合法性由 engine.NewBarAggregator 在构造时校验
type BarConfig struct {
	Intervals      []string // 要聚合的周期，例如 ["1min", "5min", "1H"]
	TickSideLogic  string   // use_flags | use_l1_quote | lee_ready_simple
	FlagsBuyValue  string   // TickSideLogic=use_flags 时，表示买方主动的 flag 值
	FlagsSellValue string   // 同上，卖方主动
	Strict         bool     // true: 脏 Tick 直接报 DataError；false: 记日志后跳过
}

// GlobalConfig 存储加载后的全局配置
var GlobalConfig Config

// LoadConfig 读取并解析配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Fatalf("Config file not found: %s", err)
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode config into struct: %s", err)
	}

	return &GlobalConfig
}
