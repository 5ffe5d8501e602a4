package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kristinelam/gotransit"
)

// ArrayFlags collects repeated float flags, e.g. --ldc 0.3 --ldc 0.2.
type ArrayFlags []float64

func (a *ArrayFlags) String() string {
	parts := make([]string, len(*a))
	for i, v := range *a {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (a *ArrayFlags) Set(value string) error {
	for _, field := range strings.Split(value, ",") {
		val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return err
		}
		*a = append(*a, val)
	}
	return nil
}

// Type implements pflag.Value.
func (a *ArrayFlags) Type() string {
	return "floats"
}

// Config holds the evaluation defaults used by the CLI and the service
type Config struct {
	Model         string
	NLDC          int
	Interpolate   bool
	KMin          float64
	KMax          float64
	NK            int
	NZ            int
	Supersampling int
	ExposureTime  float64
	Eclipse       bool
	Workers       int
	LDC           ArrayFlags
	Quiet         bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	WorkerCount     int
	WebhookURL      string
	EnableMetrics   bool
	EnableProfiling bool
	ProfilingPort   string
	LogLevel        string
	LogJSON         bool
	TableDB         string
	TimingFile      string

	// webhook circuit breaker
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	ShutdownTimeout time.Duration
}

// DefaultConfig returns the quadratic model with the standard table layout
func DefaultConfig() *Config {
	return &Config{
		Model:         gotransit.ModelQuadratic,
		NLDC:          2,
		KMin:          gotransit.DefaultKMin,
		KMax:          gotransit.DefaultKMax,
		NK:            gotransit.DefaultNK,
		NZ:            gotransit.DefaultNZ,
		Supersampling: 1,
		ExposureTime:  gotransit.DefaultExposureTime,
	}
}

// DefaultServerConfig returns server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		WorkerCount:     5,
		WebhookURL:      "http://webplot:3001/webhook",
		EnableMetrics:   true,
		EnableProfiling: false,
		ProfilingPort:   "6060",
		LogLevel:        "info",
		TableDB:         "gotransit.db",
		TimingFile:      "concurrent_timing_results.csv",
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// ModelConfig converts the defaults into a model configuration. Tables and
// Logger are left for the caller.
func (c *Config) ModelConfig() gotransit.Config {
	return gotransit.Config{
		Model:             c.Model,
		NLDC:              c.NLDC,
		Interpolate:       c.Interpolate,
		KMin:              c.KMin,
		KMax:              c.KMax,
		NK:                c.NK,
		NZ:                c.NZ,
		Supersampling:     c.Supersampling,
		ExposureTime:      c.ExposureTime,
		Eclipse:           c.Eclipse,
		Workers:           c.Workers,
		ChromosphereNodes: gotransit.DefaultChromosphereNodes,
	}
}

// LoadEnv overlays GOTRANSIT_* environment variables, after reading a .env
// file when one exists. Nil arguments are skipped.
func LoadEnv(cfg *Config, srv *ServerConfig) {
	_ = godotenv.Load()

	if cfg != nil {
		cfg.Model = getEnv("GOTRANSIT_MODEL", cfg.Model)
		cfg.NLDC = getIntEnv("GOTRANSIT_NLDC", cfg.NLDC)
		cfg.Interpolate = getBoolEnv("GOTRANSIT_INTERPOLATE", cfg.Interpolate)
		cfg.KMin = getFloatEnv("GOTRANSIT_KMIN", cfg.KMin)
		cfg.KMax = getFloatEnv("GOTRANSIT_KMAX", cfg.KMax)
		cfg.NK = getIntEnv("GOTRANSIT_NK", cfg.NK)
		cfg.NZ = getIntEnv("GOTRANSIT_NZ", cfg.NZ)
		cfg.Supersampling = getIntEnv("GOTRANSIT_SUPERSAMPLING", cfg.Supersampling)
		cfg.ExposureTime = getFloatEnv("GOTRANSIT_EXPTIME", cfg.ExposureTime)
		cfg.Eclipse = getBoolEnv("GOTRANSIT_ECLIPSE", cfg.Eclipse)
		cfg.Workers = getIntEnv("GOTRANSIT_EVAL_WORKERS", cfg.Workers)
		cfg.Quiet = getBoolEnv("GOTRANSIT_QUIET", cfg.Quiet)
	}

	if srv != nil {
		srv.Port = getEnv("GOTRANSIT_PORT", srv.Port)
		srv.WorkerCount = getIntEnv("GOTRANSIT_WORKERS", srv.WorkerCount)
		srv.WebhookURL = getEnv("GOTRANSIT_WEBHOOK_URL", srv.WebhookURL)
		srv.EnableMetrics = getBoolEnv("GOTRANSIT_METRICS", srv.EnableMetrics)
		srv.EnableProfiling = getBoolEnv("GOTRANSIT_PROFILING", srv.EnableProfiling)
		srv.ProfilingPort = getEnv("GOTRANSIT_PROFILING_PORT", srv.ProfilingPort)
		srv.LogLevel = getEnv("GOTRANSIT_LOG_LEVEL", srv.LogLevel)
		srv.LogJSON = getBoolEnv("GOTRANSIT_LOG_JSON", srv.LogJSON)
		srv.TableDB = getEnv("GOTRANSIT_TABLE_DB", srv.TableDB)
		srv.TimingFile = getEnv("GOTRANSIT_TIMING_FILE", srv.TimingFile)
		srv.BreakerFailures = uint32(getIntEnv("GOTRANSIT_BREAKER_FAILURES", int(srv.BreakerFailures)))
		srv.BreakerTimeout = getDurationEnv("GOTRANSIT_BREAKER_TIMEOUT", srv.BreakerTimeout)
		srv.ShutdownTimeout = getDurationEnv("GOTRANSIT_SHUTDOWN_TIMEOUT", srv.ShutdownTimeout)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
