package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "HRM"

// Config captures file and environment driven configuration for the HRM service.
type Config struct {
	HTTPPort         int
	SQLitePath       string
	JWTSecret        string
	JWTTTL           time.Duration
	QRSecret         string
	QRTokenTTL       time.Duration
	OTPTTL           time.Duration
	OTPSweepInterval time.Duration
	Timezone         string
	Location         *time.Location
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	SMTP             SMTPConfig
	MailQueueSize    int
}

// SMTPConfig holds outgoing mail settings. An empty Host disables SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether mail should be sent over SMTP.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("sqlite_path", "hrm.db")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("qr_token_ttl", "15m")
	v.SetDefault("otp_ttl", "15m")
	v.SetDefault("otp_sweep_interval", "1h")
	v.SetDefault("timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_from", "no-reply@hrm.local")
	v.SetDefault("mail_queue_size", 100)
}

// keys lists every setting so AutomaticEnv lookups also work for keys without defaults.
var keys = []string{
	"http_port", "sqlite_path", "jwt_secret", "jwt_ttl", "qr_secret", "qr_token_ttl",
	"otp_ttl", "otp_sweep_interval", "timezone", "log_level", "log_format",
	"shutdown_timeout", "smtp_host", "smtp_port", "smtp_username", "smtp_password",
	"smtp_from", "mail_queue_size",
}

// LoadDotEnv loads the given .env files (".env" when none are given) into the
// process environment. Missing files are ignored and existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("đọc tệp %s thất bại: %w", file, err)
		}
	}
	return nil
}

// Load reads configuration from defaults, the optional YAML file at path and
// HRM_ prefixed environment variables, in increasing order of precedence.
//
// All invalid values are reported together in a single localized error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("không đọc được tệp cấu hình %s: %w", path, err)
		}
	}

	p := parser{v: v}
	cfg := Config{
		HTTPPort:         p.positiveInt("http_port"),
		SQLitePath:       p.str("sqlite_path"),
		JWTSecret:        p.str("jwt_secret"),
		JWTTTL:           p.duration("jwt_ttl"),
		QRSecret:         p.str("qr_secret"),
		QRTokenTTL:       p.duration("qr_token_ttl"),
		OTPTTL:           p.duration("otp_ttl"),
		OTPSweepInterval: p.duration("otp_sweep_interval"),
		Timezone:         p.str("timezone"),
		LogLevel:         strings.ToLower(p.str("log_level")),
		LogFormat:        strings.ToLower(p.str("log_format")),
		ShutdownTimeout:  p.duration("shutdown_timeout"),
		SMTP: SMTPConfig{
			Host:     p.str("smtp_host"),
			Port:     p.positiveInt("smtp_port"),
			Username: p.str("smtp_username"),
			Password: p.str("smtp_password"),
			From:     p.str("smtp_from"),
		},
		MailQueueSize: p.positiveInt("mail_queue_size"),
	}

	if cfg.SQLitePath == "" {
		p.invalid = append(p.invalid, envName("sqlite_path"))
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		p.invalid = append(p.invalid, envName("timezone"))
	} else {
		cfg.Location = loc
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		p.invalid = append(p.invalid, envName("log_level"))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		p.invalid = append(p.invalid, envName("log_format"))
	}

	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("giá trị cấu hình không hợp lệ: %s", strings.Join(p.invalid, ", "))
	}
	return cfg, nil
}

// ValidateForServer checks the settings the HTTP server cannot start without.
func (c Config) ValidateForServer() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, envName("jwt_secret"))
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		missing = append(missing, envName("smtp_from"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("thiếu cấu hình bắt buộc: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}

// parser reads raw values as strings so malformed input is reported instead
// of silently becoming a zero value.
type parser struct {
	v       *viper.Viper
	invalid []string
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.v.GetString(key))
}

func (p *parser) positiveInt(key string) int {
	n, err := strconv.Atoi(p.str(key))
	if err != nil || n <= 0 {
		p.invalid = append(p.invalid, envName(key))
		return 0
	}
	return n
}

func (p *parser) duration(key string) time.Duration {
	d, err := time.ParseDuration(p.str(key))
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, envName(key))
		return 0
	}
	return d
}
