package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Config is the application configuration, loaded once per process.
// CLI flags override the file values in main.
type Config struct {
	DataDir string `json:"data_dir"` // where yield tables land and outputs go

	Input struct {
		File      string   `json:"file"`      // default table to analyze
		Encoding  string   `json:"encoding"`  // cp932, shift_jis, euc-jp, utf-8, ...
		Sheet     string   `json:"sheet"`     // xlsx sheet name, first when empty
		Sentinels []string `json:"sentinels"` // missing-value markers
	} `json:"input"`

	Analysis struct {
		Components int    `json:"components"`
		ChartTitle string `json:"chart_title"`
	} `json:"analysis"`

	Email struct {
		Server        string   `json:"server"` // IMAP host:port
		Username      string   `json:"username"`
		Password      string   `json:"password"`
		TargetSubject string   `json:"target_subject"`
		CheckInterval Duration `json:"check_interval"`
	} `json:"email"`

	Report struct {
		Enabled    bool     `json:"enabled"`
		Server     string   `json:"server"` // SMTP host:port
		Username   string   `json:"username"`
		Password   string   `json:"password"`
		Recipients []string `json:"recipients"`
	} `json:"report"`

	Push struct {
		URL string `json:"url"` // webhook for the run summary, empty disables
	} `json:"push"`

	LogName    string `json:"log_name"`
	LogMaxSize string `json:"log_max_size"` // e.g. "10 * 1024 * 1024"
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// LoadConfig reads the JSON config at path once per process. A missing file
// is not an error: one-shot CLI runs work with defaults and flags alone.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		instance, loadErr = load(path)
	})
	return instance, loadErr
}

func load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Input.File == "" {
		c.Input.File = "jgbcm_all.csv"
	}
	if c.Input.Encoding == "" {
		c.Input.Encoding = "cp932"
	}
	if c.Input.Sentinels == nil {
		c.Input.Sentinels = []string{"-", ""}
	}
	if c.Analysis.Components == 0 {
		c.Analysis.Components = 3
	}
	if c.Analysis.ChartTitle == "" {
		c.Analysis.ChartTitle = "JGB Yield Curve PCA"
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(6 * time.Hour)
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
}

// Duration wraps time.Duration so config files can say "6h" or "30m".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
