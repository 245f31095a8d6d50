package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/teemow/concierge/internal/calendar"
	"github.com/teemow/concierge/internal/instrumentation"
)

// Defaults used when the environment does not say otherwise.
const (
	DefaultAccount     = "default"
	DefaultModelName   = "gemini-2.5-flash"
	DefaultUserName    = "User"
	DefaultTimeZone    = "Local"
	DefaultLogFormat   = "text"
	DefaultTemperature = 0
)

// Config is the runtime configuration of the assistant.
type Config struct {
	// Account is the Google account whose token is used (GOOGLE_ACCOUNT).
	Account string

	// CalendarID is the calendar events are listed on and created in (CALENDAR_ID).
	CalendarID string

	WorkStartHour int
	WorkEndHour   int

	// SlotStep is the availability grid (SLOT_STEP_MINUTES).
	SlotStep time.Duration

	// TimeZone is an IANA zone name or "Local" (TIMEZONE).
	TimeZone string

	// BackendTimeout bounds each calendar/email backend call (BACKEND_TIMEOUT).
	BackendTimeout time.Duration

	ModelName   string
	Temperature float32
	APIKey      string

	// PromptsFile overrides the embedded prompt set (PROMPTS_FILE).
	PromptsFile string

	// UserName is used to sign emails (USER_NAME).
	UserName string

	LogFormat string
}

// Load reads .env files (default ".env"), ignoring missing ones, and
// returns the configuration from the environment. Variables that are
// already set are not overwritten by the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv(), nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Account:        DefaultAccount,
		CalendarID:     calendar.PrimaryCalendarID,
		WorkStartHour:  calendar.DefaultWorkHours.StartHour,
		WorkEndHour:    calendar.DefaultWorkHours.EndHour,
		SlotStep:       calendar.DefaultStep,
		TimeZone:       DefaultTimeZone,
		BackendTimeout: calendar.DefaultBackendTimeout,
		ModelName:      DefaultModelName,
		Temperature:    DefaultTemperature,
		UserName:       DefaultUserName,
		LogFormat:      DefaultLogFormat,
	}
}

// FromEnv returns the configuration from environment variables.
func FromEnv() Config {
	d := Default()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}

	return Config{
		Account:        getEnvOrDefault("GOOGLE_ACCOUNT", d.Account),
		CalendarID:     getEnvOrDefault("CALENDAR_ID", d.CalendarID),
		WorkStartHour:  getEnvIntOrDefault("WORK_START_HOUR", d.WorkStartHour),
		WorkEndHour:    getEnvIntOrDefault("WORK_END_HOUR", d.WorkEndHour),
		SlotStep:       time.Duration(getEnvIntOrDefault("SLOT_STEP_MINUTES", int(d.SlotStep/time.Minute))) * time.Minute,
		TimeZone:       getEnvOrDefault("TIMEZONE", d.TimeZone),
		BackendTimeout: getEnvDurationOrDefault("BACKEND_TIMEOUT", d.BackendTimeout),
		ModelName:      getEnvOrDefault("MODEL_NAME", d.ModelName),
		Temperature:    float32(getEnvFloatOrDefault("TEMPERATURE", float64(d.Temperature))),
		APIKey:         apiKey,
		PromptsFile:    os.Getenv("PROMPTS_FILE"),
		UserName:       getEnvOrDefault("USER_NAME", d.UserName),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", d.LogFormat),
	}
}

// Validate checks the scheduling settings.
func (c Config) Validate() error {
	if err := c.WorkHours().Validate(); err != nil {
		return err
	}
	if c.SlotStep <= 0 {
		return fmt.Errorf("slot step must be positive, got %s", c.SlotStep)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend timeout must be positive, got %s", c.BackendTimeout)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone.
func (c Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == DefaultTimeZone {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// WorkHours returns the configured working window.
func (c Config) WorkHours() calendar.WorkHours {
	return calendar.WorkHours{StartHour: c.WorkStartHour, EndHour: c.WorkEndHour}
}

// AvailabilityConfig returns the calculator settings for this configuration.
func (c Config) AvailabilityConfig(logger *slog.Logger, metrics *instrumentation.Metrics) (calendar.AvailabilityConfig, error) {
	loc, err := c.Location()
	if err != nil {
		return calendar.AvailabilityConfig{}, err
	}
	return calendar.AvailabilityConfig{
		CalendarID: c.CalendarID,
		WorkHours:  c.WorkHours(),
		Step:       c.SlotStep,
		Location:   loc,
		Timeout:    c.BackendTimeout,
		Logger:     logger,
		Metrics:    metrics,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("45s") or plain seconds ("45").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
