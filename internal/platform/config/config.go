package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full service configuration, grouped by collaborator.
type Config struct {
	Server    Server
	WhatsApp  WhatsApp
	Directory Directory
	Redis     RedisConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	LogLevel    string
	LogFormat   string
	CatalogFile string
}

// WhatsApp holds Cloud API and Flow endpoint settings.
type WhatsApp struct {
	VerifyToken          string
	AppSecret            string
	AccessToken          string
	PhoneNumberID        string
	BusinessAccountID    string
	GraphVersion         string
	GraphURL             string
	FlowID               string
	PrivateKey           string
	PublicKey            string
	PrivateKeyPassphrase string
}

// MessagingConfigured reports whether outbound sends can be attempted.
func (w WhatsApp) MessagingConfigured() bool {
	return w.AccessToken != "" && w.PhoneNumberID != ""
}

// Directory holds the directory API identity and fallbacks.
type Directory struct {
	BaseURL      string
	Email        string
	Password     string
	ParentRoleID string
	Timeout      time.Duration
}

// Configured reports whether login credentials are present.
func (d Directory) Configured() bool {
	return d.BaseURL != "" && d.Email != "" && d.Password != ""
}

// RedisConfig configures the optional shared credential store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Defaults applied when the environment leaves a value unset.
const (
	DefaultAddr         = ":8080"
	DefaultGraphVersion = "v22.0"
	DefaultGraphURL     = "https://graph.facebook.com"
	DefaultDirectoryURL = "https://terragostg.terrasofthq.com/api"
	DefaultFlowID       = "2933855406810730"
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:        getEnv("FLOWGATE_ADDR", DefaultAddr),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "json"),
			CatalogFile: os.Getenv("CATALOG_FILE"),
		},
		WhatsApp: WhatsApp{
			VerifyToken:          os.Getenv("WHATSAPP_VERIFY_TOKEN"),
			AppSecret:            os.Getenv("WHATSAPP_APP_SECRET"),
			AccessToken:          os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			PhoneNumberID:        os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BusinessAccountID:    os.Getenv("WHATSAPP_WABA_ID"),
			GraphVersion:         getEnv("WHATSAPP_GRAPH_VERSION", DefaultGraphVersion),
			GraphURL:             getEnv("WHATSAPP_GRAPH_URL", DefaultGraphURL),
			FlowID:               getEnv("WHATSAPP_FLOW_ID", DefaultFlowID),
			PrivateKey:           os.Getenv("WHATSAPP_PRIVATE_KEY"),
			PublicKey:            os.Getenv("WHATSAPP_PUBLIC_KEY"),
			PrivateKeyPassphrase: os.Getenv("WHATSAPP_PRIVATE_KEY_PASSPHRASE"),
		},
		Directory: Directory{
			BaseURL:      getEnv("DIRECTORY_API_URL", DefaultDirectoryURL),
			Email:        os.Getenv("DIRECTORY_EMAIL"),
			Password:     os.Getenv("DIRECTORY_PASSWORD"),
			ParentRoleID: os.Getenv("DIRECTORY_PARENT_ROLE_ID"),
			Timeout:      getDuration("DIRECTORY_TIMEOUT", 15*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts Go duration strings; unparsable values fall back.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
