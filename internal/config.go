package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080" validate:"gt=0,lte=65535"`
	OpsPort              int           `env:"OPS_PORT,default=8081" validate:"gt=0,lte=65535"`
	DebugPort            int           `env:"DEBUG_PORT,default=8082" validate:"gte=0,lte=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=4" validate:"gt=0"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024" validate:"gte=0"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"gt=0"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=100ms" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s" validate:"gt=0"`
	DispatchTimeout      time.Duration `env:"DISPATCH_TIMEOUT,default=2s" validate:"gt=0"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s" validate:"gt=0"`
	MaxMessageSize       int           `env:"MAX_MESSAGE_SIZE,default=4096" validate:"gt=0"`
	ReplayHistory        bool          `env:"REPLAY_HISTORY,default=false"`
	JournalLimit         *int          `env:"JOURNAL_LIMIT" validate:"omitnil,gt=0"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=5s" validate:"gte=0"`
}

// LoadConfig reads an optional .env file, then the environment.
// A zero DEBUG_PORT disables the debug server, a zero STATS_INTERVAL the process sampling.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
