package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		RollbarToken     string
		SendgridAPIKey   string
		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Redis    RedisConfig
		Uploads  UploadsConfig
	}

	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file; ":memory:" in tests
	}

	StorageConfig struct {
		Backend      string // gcs | local
		Bucket       string
		CDNDomain    string
		Credentials  string // service account JSON or file path; empty for default credentials
		LocalDir     string
		LocalBaseURL string
		Timeout      time.Duration
		Retries      int
	}

	RedisConfig struct {
		Addr          string
		LoginAttempts int
		LoginWindow   time.Duration
	}

	UploadsConfig struct {
		PhotoExtensions []string
		VideoExtensions []string
		MaxFileSize     int64
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment, after loading `config/.env.<env>` if it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridAPIKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Storage: StorageConfig{
			Backend:      v.GetString("storage.backend"),
			Bucket:       v.GetString("storage.bucket"),
			CDNDomain:    v.GetString("storage.cdnDomain"),
			Credentials:  v.GetString("storage.credentials"),
			LocalDir:     v.GetString("storage.localDir"),
			LocalBaseURL: v.GetString("storage.localBaseURL"),
			Timeout:      v.GetDuration("storage.timeout"),
			Retries:      v.GetInt("storage.retries"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("redis.addr"),
			LoginAttempts: v.GetInt("redis.loginAttempts"),
			LoginWindow:   v.GetDuration("redis.loginWindow"),
		},
		Uploads: UploadsConfig{
			PhotoExtensions: v.GetStringSlice("uploads.photoExtensions"),
			VideoExtensions: v.GetStringSlice("uploads.videoExtensions"),
			MaxFileSize:     v.GetInt64("uploads.maxFileSize"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "ContentDesk")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "k3v!d0-8s@1j$z#p9xq^l2m&wn7e*b5c4r6t(y)u_h+g=f")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "contentdesk")
	v.SetDefault("database.user", "contentdesk")
	v.SetDefault("database.password", "contentdesk")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "contentdesk.db")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.localDir", "uploads")
	v.SetDefault("storage.localBaseURL", "http://localhost:8000/uploads")
	v.SetDefault("storage.timeout", 2*time.Minute)
	v.SetDefault("storage.retries", 3)

	v.SetDefault("redis.loginAttempts", 5)
	v.SetDefault("redis.loginWindow", 15*time.Minute)

	v.SetDefault("uploads.photoExtensions", []string{".jpg", ".jpeg", ".png", ".heic", ".webp"})
	v.SetDefault("uploads.videoExtensions", []string{".mp4", ".mov", ".m4v", ".webm"})
	v.SetDefault("uploads.maxFileSize", int64(500<<20))
}

// NewTestConfig returns a configuration suitable for tests: sqlite in memory, local storage, no external services.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v, "TEST")
	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{Engine: "sqlite", Path: ":memory:"},
		Storage: StorageConfig{
			Backend:      "local",
			LocalBaseURL: "http://test.local/uploads",
			Timeout:      time.Second,
			Retries:      1,
		},
		Redis: RedisConfig{
			LoginAttempts: v.GetInt("redis.loginAttempts"),
			LoginWindow:   v.GetDuration("redis.loginWindow"),
		},
		Uploads: UploadsConfig{
			PhotoExtensions: v.GetStringSlice("uploads.photoExtensions"),
			VideoExtensions: v.GetStringSlice("uploads.videoExtensions"),
			MaxFileSize:     v.GetInt64("uploads.maxFileSize"),
		},
	}
	return conf
}
