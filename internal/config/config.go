package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ModeReload  = "reload"
	ModeCatalog = "catalog"
	ModeHybrid  = "hybrid"
)

type SourceConfig struct {
	Mode     string   `yaml:"mode"`
	File     string   `yaml:"file"`
	Encoding string   `yaml:"encoding"`
	Driver   string   `yaml:"driver"`
	DSN      string   `yaml:"dsn"`
	Owners   []string `yaml:"owners"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type TargetConfig struct {
	Database     string         `yaml:"database"`
	Encoding     string         `yaml:"encoding"`
	CType        string         `yaml:"ctype"`
	Collate      string         `yaml:"collate"`
	AdminRole    string         `yaml:"admin_role"`
	UserRole     string         `yaml:"user_role"`
	BackupRole   string         `yaml:"backup_role"`
	RolePassword string         `yaml:"role_password"`
	OutputPath   string         `yaml:"output_path"`
	ScriptName   string         `yaml:"script_name"`
	LoadPath     string         `yaml:"load_path"`
	NullValue    *string        `yaml:"null_value"`
	Delimiter    string         `yaml:"delimiter"`
	Tables       []string       `yaml:"tables"`
	Format       string         `yaml:"format"`
	Workers      int            `yaml:"workers"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

type Config struct {
	Source SourceConfig `yaml:"source"`
	Target TargetConfig `yaml:"target"`
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	s := &c.Source
	s.Mode = strings.ToLower(strings.TrimSpace(s.Mode))
	if s.Mode == "" {
		s.Mode = ModeReload
	}
	setDefault(&s.Encoding, "UTF-8")
	setDefault(&s.Driver, "sqlserver")
	if len(s.Owners) == 0 {
		s.Owners = []string{"dba"}
	}

	t := &c.Target
	setDefault(&t.Database, "MigratedDatabase")
	setDefault(&t.Encoding, "UTF8")
	setDefault(&t.CType, "en_US.utf8")
	setDefault(&t.Collate, "en_US.utf8")
	setDefault(&t.AdminRole, "admin")
	setDefault(&t.UserRole, "user")
	setDefault(&t.BackupRole, "backup")
	setDefault(&t.ScriptName, "reload-postgres.sql")
	setDefault(&t.LoadPath, "/db_unloaded")
	if t.NullValue == nil {
		null := `\N`
		t.NullValue = &null
	}
	setDefault(&t.Delimiter, ",")
	setDefault(&t.Format, "target")
	if t.Workers == 0 {
		t.Workers = 20
	}

	p := &t.Postgres
	setDefault(&p.Host, "localhost")
	setDefault(&p.Username, "postgres")
	setDefault(&p.SSLMode, "disable")
	if p.Port == 0 {
		p.Port = 5432
	}
}

func (c *Config) Validate() error {
	switch c.Source.Mode {
	case ModeReload, ModeHybrid:
		if strings.TrimSpace(c.Source.File) == "" {
			return fmt.Errorf("source.file is required for %s mode", c.Source.Mode)
		}
	case ModeCatalog:
	default:
		return fmt.Errorf("unknown source.mode %q", c.Source.Mode)
	}

	if c.Source.Mode != ModeReload && strings.TrimSpace(c.Source.DSN) == "" {
		return fmt.Errorf("source.dsn is required for %s mode", c.Source.Mode)
	}

	if len(c.Target.Delimiter) != 1 || c.Target.Delimiter == `\` {
		return fmt.Errorf("target.delimiter must be a single character other than backslash")
	}

	switch c.Target.Format {
	case "target", "source":
	default:
		return fmt.Errorf("unknown target.format %q", c.Target.Format)
	}

	if c.Target.Workers < 1 {
		return fmt.Errorf("target.workers must be at least 1")
	}

	return nil
}

// Null returns the NULL sentinel of data files. An empty string is a valid sentinel.
func (c *Config) Null() string {
	if c.Target.NullValue == nil {
		return `\N`
	}
	return *c.Target.NullValue
}

// DelimiterByte returns the field delimiter of unloaded data files.
func (c *Config) DelimiterByte() byte {
	return c.Target.Delimiter[0]
}

// PostgresDSN returns a lib/pq keyword connection string for database.
func (c *Config) PostgresDSN(database string) string {
	p := c.Target.Postgres
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.Username,
		p.Password,
		database,
		p.SSLMode,
	)
}

// PgxURL returns a postgres URL for database, used by the COPY loader.
func (c *Config) PgxURL(database string) string {
	p := c.Target.Postgres

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + database,
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	} else {
		u.User = url.User(p.Username)
	}

	q := u.Query()
	q.Set("sslmode", p.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
