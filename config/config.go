package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

var Conf Config

func Load() error {
	var err error

	_, err = os.Stat(".env")

	if err != nil {
		log.Println(".env file does not exist\nReading from the environment directly")
	} else {
		err = godotenv.Load(".env")

		if err != nil {
			return errors.Wrap(err, "loading .env")
		}
	}

	conf, err := FromEnv()
	if err != nil {
		return err
	}

	Conf = conf
	return nil
}

// FromEnv builds a Config from the process environment without touching Conf.
func FromEnv() (Config, error) {
	relay := DefaultRelay()
	var err error

	if relay.MaxCameras, err = intEnv("MAX_CAMERAS", relay.MaxCameras); err != nil {
		return Config{}, err
	}
	if relay.MaxFrameSize, err = intEnv("MAX_FRAME_SIZE", relay.MaxFrameSize); err != nil {
		return Config{}, err
	}
	if relay.OnlineThreshold, err = durationEnv("ONLINE_THRESHOLD", relay.OnlineThreshold); err != nil {
		return Config{}, err
	}
	if relay.AutoClearTimeout, err = durationEnv("AUTO_CLEAR_TIMEOUT", relay.AutoClearTimeout); err != nil {
		return Config{}, err
	}
	if relay.LivenessInterval, err = durationEnv("LIVENESS_INTERVAL", relay.LivenessInterval); err != nil {
		return Config{}, err
	}
	if relay.StreamInterval, err = durationEnv("STREAM_INTERVAL", relay.StreamInterval); err != nil {
		return Config{}, err
	}

	shutdown, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Environment:     os.Getenv("ENVIRONMENT"),
		LogFolder:       os.Getenv("LOG_FOLDER"),
		CORSOrigins:     listEnv("CORS_ORIGINS", []string{"*"}),
		ShutdownTimeout: shutdown,
		Relay:           relay,
		S3Config: S3{
			Bucket:      os.Getenv("S3_BUCKET_NAME"),
			AccessKey:   os.Getenv("S3_ACCESS_KEY"),
			SecretKey:   os.Getenv("S3_SECRET_KEY"),
			Region:      os.Getenv("S3_REGION"),
			EndpointUrl: os.Getenv("S3_ENDPOINT_URL"),
		},
		Port: func() string {
			port := os.Getenv("PORT")
			if port == "" {
				return "8080"
			}
			return port
		}(),
	}, nil
}

func GetConfig() Config {
	return Conf
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	if v <= 0 {
		return 0, errors.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	if v <= 0 {
		return 0, errors.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}

func listEnv(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
