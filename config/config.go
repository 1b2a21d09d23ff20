package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendEmbedded = "embedded"
	BackendPostgres = "postgres"
)

// CarTypeWeight is one weighted category of the car-type distribution.
// Weights are relative; the generator normalizes them.
type CarTypeWeight struct {
	Name   string
	Weight float64
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PopulationSize int
	RandomSeed     uint64

	CarTypeWeights []CarTypeWeight
	AgeMin         int
	AgeMax         int
	AgeBuckets     []int

	PremiumMean   float64
	PremiumStdDev float64
	PremiumMin    float64
	PremiumMax    float64

	ClaimBaseRate      float64
	ClaimSeverityMean  float64
	ClaimSeveritySigma float64
	ClaimYear          int

	TopPolicies   int
	HistogramBins int

	StoreBackend     string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	OutputDir string
	LogLevel  string
}

// Load reads the .env file, parses every parameter and validates the result.
// A malformed or inconsistent configuration is returned as an error so the
// pipeline can abort before generating anything.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		PopulationSize: getEnvInt("POPULATION_SIZE", 1000),
		RandomSeed:     uint64(getEnvInt64("RANDOM_SEED", 42)),

		AgeMin: getEnvInt("AGE_MIN", 18),
		AgeMax: getEnvInt("AGE_MAX", 80),

		PremiumMean:   getEnvFloat("PREMIUM_MEAN", 1200),
		PremiumStdDev: getEnvFloat("PREMIUM_STDDEV", 250),
		PremiumMin:    getEnvFloat("PREMIUM_MIN", 400),
		PremiumMax:    getEnvFloat("PREMIUM_MAX", 4000),

		ClaimBaseRate:      getEnvFloat("CLAIM_BASE_RATE", 0.12),
		ClaimSeverityMean:  getEnvFloat("CLAIM_SEVERITY_MEAN", 7000),
		ClaimSeveritySigma: getEnvFloat("CLAIM_SEVERITY_SIGMA", 0.9),
		ClaimYear:          getEnvInt("CLAIM_YEAR", 2024),

		TopPolicies:   getEnvInt("TOP_POLICIES", 10),
		HistogramBins: getEnvInt("HISTOGRAM_BINS", 50),

		StoreBackend:     getEnv("STORE_BACKEND", BackendEmbedded),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "insurance"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "insurance123"),
		PostgresDB:       getEnv("POSTGRES_DB", "portfolio_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		OutputDir: getEnv("OUTPUT_DIR", "./output"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	weights, err := parseCarTypeWeights(getEnv("CAR_TYPE_WEIGHTS", "Sedan:0.4,SUV:0.3,Truck:0.2,Sports:0.1"))
	if err != nil {
		return nil, fmt.Errorf("config: CAR_TYPE_WEIGHTS: %w", err)
	}
	cfg.CarTypeWeights = weights

	buckets, err := parseAgeBuckets(getEnv("AGE_BUCKETS", "30,40,50,60,70"))
	if err != nil {
		return nil, fmt.Errorf("config: AGE_BUCKETS: %w", err)
	}
	cfg.AgeBuckets = buckets

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("population size must be positive (got %d)", c.PopulationSize)
	}
	if len(c.CarTypeWeights) == 0 {
		return fmt.Errorf("at least one car type is required")
	}
	seen := make(map[string]struct{}, len(c.CarTypeWeights))
	for _, w := range c.CarTypeWeights {
		if _, dup := seen[w.Name]; dup {
			return fmt.Errorf("duplicate car type %q", w.Name)
		}
		seen[w.Name] = struct{}{}
		if w.Weight <= 0 {
			return fmt.Errorf("car type %q must have a positive weight (got %g)", w.Name, w.Weight)
		}
	}
	if c.AgeMin < 0 {
		return fmt.Errorf("minimum age must not be negative (got %d)", c.AgeMin)
	}
	if c.AgeMax <= c.AgeMin {
		return fmt.Errorf("maximum age %d must exceed minimum age %d", c.AgeMax, c.AgeMin)
	}
	prev := c.AgeMin
	for _, b := range c.AgeBuckets {
		if b <= prev {
			return fmt.Errorf("age buckets must be strictly increasing and above the minimum age (got %v)", c.AgeBuckets)
		}
		if b >= c.AgeMax {
			return fmt.Errorf("age bucket %d must be below the maximum age %d", b, c.AgeMax)
		}
		prev = b
	}
	if c.PremiumMean <= 0 {
		return fmt.Errorf("premium mean must be positive (got %g)", c.PremiumMean)
	}
	if c.PremiumStdDev < 0 {
		return fmt.Errorf("premium standard deviation must not be negative (got %g)", c.PremiumStdDev)
	}
	if c.PremiumMin <= 0 {
		return fmt.Errorf("premium floor must be positive (got %g)", c.PremiumMin)
	}
	if c.PremiumMax < c.PremiumMin {
		return fmt.Errorf("premium ceiling %g must not be below the floor %g", c.PremiumMax, c.PremiumMin)
	}
	if c.ClaimBaseRate < 0 {
		return fmt.Errorf("claim base rate must not be negative (got %g)", c.ClaimBaseRate)
	}
	if c.ClaimSeverityMean <= 0 {
		return fmt.Errorf("claim severity mean must be positive (got %g)", c.ClaimSeverityMean)
	}
	if c.ClaimSeveritySigma <= 0 {
		return fmt.Errorf("claim severity sigma must be positive (got %g)", c.ClaimSeveritySigma)
	}
	if c.ClaimYear < 1 {
		return fmt.Errorf("claim year must be positive (got %d)", c.ClaimYear)
	}
	if c.TopPolicies < 1 {
		return fmt.Errorf("top policies count must be positive (got %d)", c.TopPolicies)
	}
	if c.HistogramBins < 1 {
		return fmt.Errorf("histogram bins must be positive (got %d)", c.HistogramBins)
	}
	if c.StoreBackend != BackendEmbedded && c.StoreBackend != BackendPostgres {
		return fmt.Errorf("unknown store backend %q (want %q or %q)", c.StoreBackend, BackendEmbedded, BackendPostgres)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}

// AgeGroupFor returns the bucket label a customer age falls into, e.g.
// "30-39" or "70+" for the open-ended last bucket.
func (c *Config) AgeGroupFor(age int) string {
	lo := c.AgeMin
	for _, b := range c.AgeBuckets {
		if age < b {
			return fmt.Sprintf("%d-%d", lo, b-1)
		}
		lo = b
	}
	return fmt.Sprintf("%d+", lo)
}

// AgeGroupLabels returns every bucket label in ascending age order.
func (c *Config) AgeGroupLabels() []string {
	labels := make([]string, 0, len(c.AgeBuckets)+1)
	lo := c.AgeMin
	for _, b := range c.AgeBuckets {
		labels = append(labels, fmt.Sprintf("%d-%d", lo, b-1))
		lo = b
	}
	return append(labels, fmt.Sprintf("%d+", lo))
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// parseCarTypeWeights parses "Sedan:0.4,SUV:0.3" into an ordered weight
// list. Order is preserved so generation stays reproducible.
func parseCarTypeWeights(s string) ([]CarTypeWeight, error) {
	var weights []CarTypeWeight
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("malformed entry %q (want name:weight)", pair)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty car type in entry %q", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight in entry %q: %w", pair, err)
		}
		weights = append(weights, CarTypeWeight{Name: name, Weight: w})
	}
	return weights, nil
}

// parseAgeBuckets parses "30,40,50" into inner bucket boundaries.
func parseAgeBuckets(s string) ([]int, error) {
	var buckets []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		b, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid boundary %q: %w", field, err)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.ParseInt(val, 10, 64)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
