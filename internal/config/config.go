package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the simulator's root configuration tree.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Simulator   SimulatorConfig   `mapstructure:"simulator"`
	WebSocket   WebSocketConfig   `mapstructure:"websocket"`
	UIServer    UIServerConfig    `mapstructure:"ui_server"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Log         LogConfig         `mapstructure:"log"`
	Broadcast   BroadcastConfig   `mapstructure:"broadcast"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Security    SecurityConfig    `mapstructure:"security"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

// AuthConfig drives C7's pipeline evaluation policy (spec §4.7): how long
// a remote Authorize round-trip may take, how long a cached remote verdict
// stays valid, and whether a local-list hit short-circuits Remote.
type AuthConfig struct {
	AuthorizationTimeout        time.Duration `mapstructure:"authorization_timeout"`
	AuthorizationCacheLifetime  time.Duration `mapstructure:"authorization_cache_lifetime"`
	CacheEnabled                bool          `mapstructure:"cache_enabled"`
	LocalPreAuthorize           bool          `mapstructure:"local_pre_authorize"`
	OfflineAuthorizationEnabled bool          `mapstructure:"offline_authorization_enabled"`
}

// AppConfig carries basic identity info, same shape the teacher uses.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Profile string `mapstructure:"profile"`
}

// SimulatorConfig configures the fleet: where templates live, which pool
// model hosts stations, and default supervision behavior.
type SimulatorConfig struct {
	TemplatesDir      string        `mapstructure:"templates_dir"`
	IdTagsFile        string        `mapstructure:"id_tags_file"`
	WorkerPoolModel   string        `mapstructure:"worker_pool_model"` // fixed | dynamic | worker-set
	FixedWorkerCount  int           `mapstructure:"fixed_worker_count"`
	DynamicMaxWorkers int           `mapstructure:"dynamic_max_workers"`
	DynamicQueueDepth int           `mapstructure:"dynamic_queue_depth"`
	DynamicIdleTTL    time.Duration `mapstructure:"dynamic_idle_ttl"`
	WorkerSetCapacity int           `mapstructure:"worker_set_capacity"`
	AutoStart         bool          `mapstructure:"auto_start"`
}

// WebSocketConfig controls the station-side dial (C2 Session).
type WebSocketConfig struct {
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	BackoffInitial    time.Duration `mapstructure:"backoff_initial"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

// UIServerConfig configures C13's HTTP/WS control plane.
type UIServerConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	WebSocketPath        string        `mapstructure:"websocket_path"`
	BasicAuthUser        string        `mapstructure:"basic_auth_user"`
	BasicAuthPassword    string        `mapstructure:"basic_auth_password"`
	RateLimitPerSecond   float64       `mapstructure:"rate_limit_per_second"`
	RateLimitBurst       int           `mapstructure:"rate_limit_burst"`
	MaxBodyBytes         int64         `mapstructure:"max_body_bytes"`
	GzipThresholdBytes   int           `mapstructure:"gzip_threshold_bytes"`
	MaxStationsPerAdd    int           `mapstructure:"max_stations_per_add"`
	BroadcastTimeout     time.Duration `mapstructure:"broadcast_timeout"`
	AllowedOrigins       []string      `mapstructure:"allowed_origins"`
	RequireSubprotocol   bool          `mapstructure:"require_subprotocol"`
}

// CacheConfig shapes the ID-tag auth cache (C6), same knobs the teacher's
// LRU cache exposes, repurposed for TTL-bounded FIFO eviction.
type CacheConfig struct {
	MaxSize         int           `mapstructure:"max_size"`
	ShardCount      int           `mapstructure:"shard_count"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig, unchanged shape from the teacher.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	Async  bool   `mapstructure:"async"`
}

// BroadcastConfig selects C14's transport: the in-process bus by default,
// or a Kafka-backed bus when a worker-set spans more than one host.
type BroadcastConfig struct {
	Mode            string   `mapstructure:"mode"` // inprocess | kafka
	KafkaBrokers    []string `mapstructure:"kafka_brokers"`
	KafkaTopic      string   `mapstructure:"kafka_topic"`
	KafkaGroup      string   `mapstructure:"kafka_group"`
}

// RegistryConfig optionally backs the C12 worker pool's station ownership
// index with Redis, for multi-supervisor deployments.
type RegistryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

// MonitoringConfig, carried over from the teacher.
type MonitoringConfig struct {
	MetricsAddr  string `mapstructure:"metrics_addr"`
	PprofEnabled bool   `mapstructure:"pprof_enabled"`
}

// PersistenceConfig points at the on-disk roots for C4 and C15.
type PersistenceConfig struct {
	ConfigDir string `mapstructure:"config_dir"`
	CertsDir  string `mapstructure:"certs_dir"`
}

// SecurityConfig controls TLS for outbound CSMS sessions.
type SecurityConfig struct {
	TLSEnabled        bool   `mapstructure:"tls_enabled"`
	TLSInsecureSkipCA bool   `mapstructure:"tls_insecure_skip_ca"`
	CACertFile        string `mapstructure:"ca_cert_file"`
}

// Load mirrors the teacher's Spring-Boot-style layered load: defaults,
// application.yaml, application-{profile}.yaml, then environment override.
func Load() (*Config, error) {
	setDefaults()

	profile := getProfile()
	fmt.Printf("Loading configuration for profile: %s\n", profile)

	if err := loadConfigFile("application"); err != nil {
		fmt.Printf("Warning: could not load default config file: %v\n", err)
	}

	if profile != "" {
		configName := fmt.Sprintf("application-%s", profile)
		if err := loadConfigFile(configName); err != nil {
			fmt.Printf("Warning: could not load profile config file %s: %v\n", configName, err)
		}
	}

	setupEnvironmentVariables()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.App.Profile = profile
	return &cfg, nil
}

func getProfile() string {
	if profile := os.Getenv("APP_PROFILE"); profile != "" {
		return profile
	}
	if profile := viper.GetString("app.profile"); profile != "" {
		return profile
	}
	return "local"
}

func loadConfigFile(configName string) error {
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	return viper.MergeInConfig()
}

func setupEnvironmentVariables() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.BindEnv("ui_server.port", "UI_SERVER_PORT")
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("app.profile", "APP_PROFILE")
	viper.BindEnv("simulator.templates_dir", "TEMPLATES_DIR")

	if brokers := os.Getenv("BROADCAST_KAFKA_BROKERS"); brokers != "" {
		list := strings.Split(brokers, ",")
		for i, b := range list {
			list[i] = strings.TrimSpace(b)
		}
		viper.Set("broadcast.kafka_brokers", list)
	}
}

func setDefaults() {
	viper.SetDefault("app.name", "charge-point-simulator")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.profile", "local")

	viper.SetDefault("simulator.templates_dir", "./configs/templates")
	viper.SetDefault("simulator.id_tags_file", "./configs/id-tags.txt")
	viper.SetDefault("simulator.worker_pool_model", "fixed")
	viper.SetDefault("simulator.fixed_worker_count", 4)
	viper.SetDefault("simulator.dynamic_max_workers", 16)
	viper.SetDefault("simulator.dynamic_queue_depth", 50)
	viper.SetDefault("simulator.dynamic_idle_ttl", "2m")
	viper.SetDefault("simulator.worker_set_capacity", 64)
	viper.SetDefault("simulator.auto_start", true)

	viper.SetDefault("websocket.handshake_timeout", "10s")
	viper.SetDefault("websocket.ping_interval", "60s")
	viper.SetDefault("websocket.pong_timeout", "120s")
	viper.SetDefault("websocket.max_message_size", 1048576)
	viper.SetDefault("websocket.enable_compression", false)
	viper.SetDefault("websocket.backoff_initial", "1s")
	viper.SetDefault("websocket.backoff_max", "60s")
	viper.SetDefault("websocket.request_timeout", "30s")

	viper.SetDefault("ui_server.host", "0.0.0.0")
	viper.SetDefault("ui_server.port", 8081)
	viper.SetDefault("ui_server.websocket_path", "/ui")
	viper.SetDefault("ui_server.rate_limit_per_second", 10.0)
	viper.SetDefault("ui_server.rate_limit_burst", 20)
	viper.SetDefault("ui_server.max_body_bytes", 1048576)
	viper.SetDefault("ui_server.gzip_threshold_bytes", 1024)
	viper.SetDefault("ui_server.max_stations_per_add", 1000)
	viper.SetDefault("ui_server.broadcast_timeout", "5s")
	viper.SetDefault("ui_server.require_subprotocol", false)

	viper.SetDefault("cache.max_size", 10000)
	viper.SetDefault("cache.shard_count", 16)
	viper.SetDefault("cache.ttl", "1h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")

	viper.SetDefault("broadcast.mode", "inprocess")
	viper.SetDefault("broadcast.kafka_brokers", []string{"localhost:9092"})
	viper.SetDefault("broadcast.kafka_topic", "simulator-broadcast")
	viper.SetDefault("broadcast.kafka_group", "simulator-ui")

	viper.SetDefault("registry.enabled", false)
	viper.SetDefault("registry.addr", "localhost:6379")
	viper.SetDefault("registry.db", 0)
	viper.SetDefault("registry.dial_timeout", "5s")

	viper.SetDefault("monitoring.metrics_addr", ":9090")
	viper.SetDefault("monitoring.pprof_enabled", false)

	viper.SetDefault("persistence.config_dir", "./data/configs")
	viper.SetDefault("persistence.certs_dir", "./data/certs")

	viper.SetDefault("security.tls_enabled", false)
	viper.SetDefault("security.tls_insecure_skip_ca", false)

	viper.SetDefault("auth.authorization_timeout", "10s")
	viper.SetDefault("auth.authorization_cache_lifetime", "1h")
	viper.SetDefault("auth.cache_enabled", true)
	viper.SetDefault("auth.local_pre_authorize", false)
	viper.SetDefault("auth.offline_authorization_enabled", true)
}

// GetUIServerAddr returns the bind address for the UI control-plane server.
func (c *Config) GetUIServerAddr() string {
	return fmt.Sprintf("%s:%d", c.UIServer.Host, c.UIServer.Port)
}

// IsProduction reports whether the active profile is "prod".
func (c *Config) IsProduction() bool {
	return c.App.Profile == "prod"
}

// IsDevelopment reports whether the active profile is "dev".
func (c *Config) IsDevelopment() bool {
	return c.App.Profile == "dev"
}
