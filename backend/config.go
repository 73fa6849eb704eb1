package backend

import (
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

type AppConfig struct {
	WindowWidth         int
	WindowHeight        int
	LastLaunchedVersion string
	SidebarOpen         bool
	MaxImageCacheSizeMB int
}

type ServerConfig struct {
	// Base URL of the catalog API, e.g. "http://localhost:5000".
	BaseURL string
}

type LocalPlaybackConfig struct {
	InMemoryCacheSizeMB int
	// Volume in the 0..1 range.
	Volume     float64
	RepeatMode string
}

type Config struct {
	Application   AppConfig
	Server        ServerConfig
	LocalPlayback LocalPlaybackConfig
}

func DefaultConfig(appVersionTag string) *Config {
	return &Config{
		Application: AppConfig{
			WindowWidth:         1000,
			WindowHeight:        800,
			LastLaunchedVersion: appVersionTag,
			SidebarOpen:         true,
			MaxImageCacheSizeMB: 50,
		},
		Server: ServerConfig{
			BaseURL: "http://localhost:5000",
		},
		LocalPlayback: LocalPlaybackConfig{
			InMemoryCacheSizeMB: 30,
			Volume:              defaultVolume,
			RepeatMode:          RepeatOff.String(),
		},
	}
}

func ReadConfigFile(filepath, appVersionTag string) (*Config, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig(appVersionTag)
	if err := toml.NewDecoder(f).Decode(c); err != nil {
		return nil, err
	}

	return c, nil
}

var writeLock sync.Mutex

func (c *Config) WriteConfigFile(filepath string) error {
	if !writeLock.TryLock() {
		return nil // another write in progress
	}
	defer writeLock.Unlock()

	b, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	os.WriteFile(filepath, b, 0644)

	return nil
}

// RepeatModeFromString parses the persisted repeat mode, defaulting
// to RepeatOff for unknown values.
func RepeatModeFromString(s string) RepeatMode {
	switch s {
	case RepeatOne.String():
		return RepeatOne
	case RepeatAll.String():
		return RepeatAll
	}
	return RepeatOff
}
