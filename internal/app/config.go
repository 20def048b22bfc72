package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type GSheetConfig struct {
	SheetID         string `toml:"sheet_id"`
	SheetName       string `toml:"sheet_name"`
	CredentialsPath string `toml:"credentials_path"`
	Schedule        string `toml:"schedule"`
	StudentsRange   string `toml:"students_range"`
	MarksColumn     string `toml:"marks_column"`
}

type Config struct {
	Server struct {
		Port       string `toml:"port"`
		EnableAuth bool   `toml:"enable_auth"`
	} `toml:"server"`

	Auth struct {
		RedisURL         string `toml:"redis_url"`
		TokenHeader      string `toml:"token_header"`
		TokenKeyTemplate string `toml:"token_key_template"`
	} `toml:"auth"`

	API struct {
		StudentIDHeader string         `toml:"student_id_header"`
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Display struct {
		TimestampFormat string `toml:"timestamp_format"`
	} `toml:"display"`

	GSheet map[string][]GSheetConfig `toml:"gsheet"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	logger.Debug.Printf("Loaded config for %d gsheet scope(s)", len(config.GSheet))

	return &config, nil
}
