package config

import "os"

type Config struct {
	Port          string
	DataPath      string
	RemoteBaseURL string
	RemoteAPIKey  string
	ProbeInterval string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8081"),
		DataPath:      getEnv("DATA_PATH", "nastar.db"),
		RemoteBaseURL: getEnv("SHEET_BASE_URL", ""),
		RemoteAPIKey:  getEnv("SHEET_API_KEY", ""),
		ProbeInterval: getEnv("PROBE_INTERVAL", "30s"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
