// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置文件结构
type Config struct {
	Infra struct {
		MySQL struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addrs string `yaml:"addrs"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers            []string `yaml:"brokers"`
			NotificationsTopic string   `yaml:"notificationsTopic"`
		} `yaml:"kafka"`
		Zookeeper struct {
			Addrs          []string      `yaml:"addrs"`
			SessionTimeout time.Duration `yaml:"sessionTimeout"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Addrs     string `yaml:"addrs"`
			Namespace string `yaml:"namespace"`
			Group     string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Payment struct {
		BaseURL string `yaml:"baseUrl"`
	} `yaml:"payment"`

	Sweeper struct {
		PaymentInterval  time.Duration `yaml:"paymentInterval"`
		PaymentTimeout   time.Duration `yaml:"paymentTimeout"`
		DeliveryInterval time.Duration `yaml:"deliveryInterval"`
		DeliveryTimeout  time.Duration `yaml:"deliveryTimeout"`
	} `yaml:"sweeper"`
}

var (
	configOnce    sync.Once
	currentConfig *Config
	configErr     error
)

// LoadConfig 从 path 读取并解析 YAML 配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &cfg, nil
}

// GetCurrentConfig 返回进程级配置，首次调用时从 CONFIG_PATH 加载。
// 解析失败直接返回错误，服务启动时应视为致命。
func GetCurrentConfig() (*Config, error) {
	configOnce.Do(func() {
		path := os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "config.yaml"
		}
		currentConfig, configErr = LoadConfig(path)
	})
	return currentConfig, configErr
}
