package runscholarshipmatch

import "time"

type Config struct {
	Timeout       time.Duration // whole run, enrichment included
	NotifyTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		NotifyTimeout: 10 * time.Second,
	}
}
