package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "FARMBRIDGE_CONFIG_FILE"

type consumers struct {
	ProductBlockerGroup string `mapstructure:"product_blocker_group"`
	ProductSaverGroup   string `mapstructure:"product_saver_group"`
}

type topics struct {
	ProductsFromAdmin   string `mapstructure:"products_from_admin"`
	ProductsToStorage   string `mapstructure:"products_to_storage"`
	FilterProductStream string `mapstructure:"filter_product_stream"`

	// Group name of the moderation processor, goka derives
	// the "<group>-table" topic from it.
	FilterProductTable string `mapstructure:"filter_product_table"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

// Empty Addr disables the catalogue snapshot cache.
type redisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type Config struct {
	LogLevel           slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr     string        `mapstructure:"http_server_addr"`
	HTTPHandlerTimeout time.Duration `mapstructure:"http_handler_timeout"`
	SQLDB              string        `mapstructure:"sql_db"`
	Broker             broker        `mapstructure:"broker"`
	Redis              redisConfig   `mapstructure:"redis"`
}

// Load reads the file named by FARMBRIDGE_CONFIG_FILE or --config
// and exits the process on failure.
func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("http_handler_timeout", 5*time.Second)
	v.SetDefault("redis.snapshot_ttl", 30*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.UnmarshalExact(&cfg, hook); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	required := map[string]string{
		"sql_db":                                 c.SQLDB,
		"broker.topics.products_from_admin":      c.Broker.Topics.ProductsFromAdmin,
		"broker.topics.products_to_storage":      c.Broker.Topics.ProductsToStorage,
		"broker.topics.filter_product_stream":    c.Broker.Topics.FilterProductStream,
		"broker.topics.filter_product_table":     c.Broker.Topics.FilterProductTable,
		"broker.consumers.product_blocker_group": c.Broker.Consumers.ProductBlockerGroup,
		"broker.consumers.product_saver_group":   c.Broker.Consumers.ProductSaverGroup,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("%q is not set", key)
		}
	}
	if len(c.Broker.SeedBrokers) == 0 {
		return fmt.Errorf("%q is not set", "broker.seed_brokers")
	}
	if len(c.Broker.SchemaRegistryURLs) == 0 {
		return fmt.Errorf("%q is not set", "broker.schema_registry_urls")
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	HTTPHandlerTimeout=%q
	SQLDB=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		ProductsFromAdmin=%q
		ProductsToStorage=%q
		FilterProductStream=%q
		FilterProductTable=%q
	Consumers:
		ProductBlockerGroup=%q
		ProductSaverGroup=%q

	Redis:
	Addr=%q
	DB=%d
	SnapshotTTL=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.HTTPHandlerTimeout,
		redactDSN(c.SQLDB),
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.ProductsFromAdmin,
		c.Broker.Topics.ProductsToStorage,
		c.Broker.Topics.FilterProductStream,
		c.Broker.Topics.FilterProductTable,
		c.Broker.Consumers.ProductBlockerGroup,
		c.Broker.Consumers.ProductSaverGroup,
		c.Redis.Addr,
		c.Redis.DB,
		c.Redis.SnapshotTTL,
	)
}

const redacted = "xxxxx"

// redactDSN hides the password of a URL or keyword/value connection string.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		return u.Redacted()
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=" + redacted
		}
	}
	return strings.Join(fields, " ")
}
