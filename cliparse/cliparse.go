package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	// Fixed admin credential pair. A placeholder for a real access-control
	// mechanism; override via env in any shared deployment.
	AdminUsername string
	AdminPassword string

	// Verification tuning.
	FaceMatchThreshold float64       // max Euclidean distance counted as a match
	EmbeddingDim       int           // fixed embedding width
	CaptureAttempts    int           // bounded polling budget per verification
	CaptureInterval    time.Duration // delay between capture attempts

	// RememberLogin persists the last logged-in identity across restarts.
	RememberLogin bool
}

// ParseFlags validates flags, falling back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var intervalMS int

	fs := flag.NewFlagSet("ballot-gate", flag.ContinueOnError)

	// Network and storage config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL or sqlite path")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Admin credential (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminUsername, "admin-user", "", "Admin username (prefer env)")
	fs.StringVar(&cfg.AdminPassword, "admin-pass", "", "Admin password (prefer env)")

	// Verification tuning
	fs.Float64Var(&cfg.FaceMatchThreshold, "face-threshold", 0, "Max embedding distance for a face match")
	fs.IntVar(&cfg.EmbeddingDim, "embedding-dim", 0, "Biometric embedding dimension")
	fs.IntVar(&cfg.CaptureAttempts, "capture-attempts", 0, "Face capture attempts per verification")
	fs.IntVar(&intervalMS, "capture-interval-ms", 0, "Delay between capture attempts in ms")
	fs.BoolVar(&cfg.RememberLogin, "remember-login", false, "Persist the last logged-in identity")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3342 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("database type must be sqlite or postgres")
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		// Postgres has no sensible local default; sqlite does.
		if cfg.DatabaseType == "postgres" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "ballot-gate.db"
	}

	if cfg.AdminUsername == "" {
		cfg.AdminUsername = os.Getenv("ADMIN_USERNAME")
		if cfg.AdminUsername == "" {
			cfg.AdminUsername = "admin"
		}
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
		if cfg.AdminPassword == "" {
			cfg.AdminPassword = "admin123"
		}
	}

	if cfg.FaceMatchThreshold == 0 {
		if v := os.Getenv("FACE_MATCH_THRESHOLD"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Config{}, errors.New("invalid FACE_MATCH_THRESHOLD env variable")
			}
			cfg.FaceMatchThreshold = f
		} else {
			cfg.FaceMatchThreshold = 0.55 // tuned constant, not derived
		}
	}
	if cfg.FaceMatchThreshold <= 0 {
		return Config{}, errors.New("face match threshold must be positive")
	}

	if cfg.EmbeddingDim == 0 {
		if v := os.Getenv("EMBEDDING_DIM"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, errors.New("invalid EMBEDDING_DIM env variable")
			}
			cfg.EmbeddingDim = n
		} else {
			cfg.EmbeddingDim = 128
		}
	}

	if cfg.CaptureAttempts == 0 {
		if v := os.Getenv("CAPTURE_ATTEMPTS"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, errors.New("invalid CAPTURE_ATTEMPTS env variable")
			}
			cfg.CaptureAttempts = n
		} else {
			cfg.CaptureAttempts = 10
		}
	}

	if intervalMS == 0 {
		if v := os.Getenv("CAPTURE_INTERVAL_MS"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, errors.New("invalid CAPTURE_INTERVAL_MS env variable")
			}
			intervalMS = n
		} else {
			intervalMS = 500
		}
	}
	cfg.CaptureInterval = time.Duration(intervalMS) * time.Millisecond

	if !cfg.RememberLogin {
		cfg.RememberLogin = os.Getenv("REMEMBER_LOGIN") == "true"
	}

	return cfg, nil
}
