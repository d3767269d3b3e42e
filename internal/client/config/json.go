package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/trainctl/internal/flagx"
	"github.com/dmitrijs2005/trainctl/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration, so "10s" and integer nanoseconds both work.
type JsonConfig struct {
	ServerURL          string         `json:"server_url"`
	ProgressPath       string         `json:"progress_path"`
	StorePath          string         `json:"store_path"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	PrivilegedSubjects []string       `json:"privileged_subjects"`
	DialAttempts       int            `json:"dial_attempts"`
	DialBackoff        timex.Duration `json:"dial_backoff"`

	LogFile       string `json:"log_file"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days"`
	LogCompress   bool   `json:"log_compress"`
	Debug         bool   `json:"debug"`

	S3 struct {
		Region          string `json:"region"`
		Endpoint        string `json:"endpoint"`
		AccessKeyID     string `json:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key"`
		UsePathStyle    bool   `json:"use_path_style"`
	} `json:"s3"`
}

// parseJson overlays cfg with the file named by -c/-config, if any. Only
// fields present in the file replace the current values. Read and decode
// errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.ProgressPath, jc.ProgressPath)
	setString(&cfg.StorePath, jc.StorePath)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.PrivilegedSubjects != nil {
		cfg.PrivilegedSubjects = jc.PrivilegedSubjects
	}
	if jc.DialAttempts > 0 {
		cfg.DialAttempts = jc.DialAttempts
	}
	if jc.DialBackoff.Duration > 0 {
		cfg.DialBackoff = jc.DialBackoff.Duration
	}

	setString(&cfg.Log.File, jc.LogFile)
	setInt(&cfg.Log.MaxSizeMB, jc.LogMaxSizeMB)
	setInt(&cfg.Log.MaxBackups, jc.LogMaxBackups)
	setInt(&cfg.Log.MaxAgeDays, jc.LogMaxAgeDays)
	cfg.Log.Compress = cfg.Log.Compress || jc.LogCompress
	cfg.Log.Debug = cfg.Log.Debug || jc.Debug

	setString(&cfg.S3.Region, jc.S3.Region)
	setString(&cfg.S3.Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3.AccessKeyID, jc.S3.AccessKeyID)
	setString(&cfg.S3.SecretAccessKey, jc.S3.SecretAccessKey)
	cfg.S3.UsePathStyle = cfg.S3.UsePathStyle || jc.S3.UsePathStyle
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
