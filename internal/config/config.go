// Package config loads sonogest settings from the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Defaults used when the corresponding variable is unset or invalid.
const (
	DefaultAddr     = ":8080"
	DefaultTickHz   = 60
	DefaultCameraID = 0
	DefaultLogLevel = "info"
	DefaultDirName  = ".sonogest"
)

// Config holds process-wide settings.
type Config struct {
	Addr        string
	DataDir     string
	CameraID    int
	TickHz      int
	FeedURL     string
	MIDIPort    string
	MIDIChannel uint8
	GestureMode bool
	Seed        uint64
	LogLevel    string
	Tray        bool
	// StaticDir, when set, is served at / by the HTTP server.
	StaticDir string
}

// Load reads SONOGEST_* environment variables and fills in defaults.
func Load() Config {
	cfg := Config{
		Addr:        getenv("SONOGEST_ADDR", DefaultAddr),
		DataDir:     getenv("SONOGEST_DATA_DIR", defaultDataDir()),
		CameraID:    getInt("SONOGEST_CAMERA", DefaultCameraID),
		TickHz:      getInt("SONOGEST_TICK_HZ", DefaultTickHz),
		FeedURL:     os.Getenv("SONOGEST_FEED_URL"),
		MIDIPort:    os.Getenv("SONOGEST_MIDI_PORT"),
		MIDIChannel: uint8(getInt("SONOGEST_MIDI_CHANNEL", 0) & 0x0f),
		GestureMode: getBool("SONOGEST_GESTURE_MODE", false),
		Seed:        getUint("SONOGEST_SEED", 0),
		LogLevel:    getenv("SONOGEST_LOG_LEVEL", DefaultLogLevel),
		Tray:        getBool("SONOGEST_TRAY", false),
		StaticDir:   os.Getenv("SONOGEST_STATIC_DIR"),
	}
	if cfg.TickHz <= 0 {
		cfg.TickHz = DefaultTickHz
	}
	return cfg
}

// TickInterval returns the frame interval for the configured tick rate.
func (c Config) TickInterval() time.Duration {
	hz := c.TickHz
	if hz <= 0 {
		hz = DefaultTickHz
	}
	return time.Second / time.Duration(hz)
}

// CameraEnabled reports whether a camera is configured. A negative id disables it.
func (c Config) CameraEnabled() bool {
	return c.CameraID >= 0
}

// DBPath returns the sqlite database location inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "sonogest.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getUint(key string, def uint64) uint64 {
	v, err := strconv.ParseUint(os.Getenv(key), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
