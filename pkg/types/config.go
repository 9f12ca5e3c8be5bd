package types

import "errors"

// Config holds backend selection and the account defaults applied to new
// applications.
type Config struct {
	Backend  string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir  string `json:"data_dir" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
	DSN      string `json:"dsn" yaml:"dsn,omitempty" mapstructure:"dsn"`
	LogLevel string `json:"log_level" yaml:"log_level,omitempty" mapstructure:"log_level"`

	Defaults  AccountDefaults `json:"defaults" yaml:"defaults" mapstructure:"defaults"`
	Directory DirectoryConfig `json:"directory" yaml:"directory" mapstructure:"directory"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
}

// AccountDefaults are the contact and account names written into new
// applications when the caller does not supply them.
type AccountDefaults struct {
	ContactInfo  string `json:"contact_info" yaml:"contact_info" mapstructure:"contact_info"`
	UserAccount  string `json:"user_account" yaml:"user_account" mapstructure:"user_account"`
	AdminAccount string `json:"admin_account" yaml:"admin_account" mapstructure:"admin_account"`
}

// DirectoryConfig holds the two sentinels of the application directory
// filter.
type DirectoryConfig struct {
	AdminAccount    string `json:"admin_account" yaml:"admin_account" mapstructure:"admin_account"`
	ExcludedContact string `json:"excluded_contact" yaml:"excluded_contact" mapstructure:"excluded_contact"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Default account and directory values.
const (
	DefaultContactInfo     = "ssoadmin@example.com"
	DefaultUserAccount     = "SSO Affiliate Administrators"
	DefaultAdminAccount    = "SSO Administrators"
	DefaultExcludedContact = "Contact Information"
	DefaultServerAddr      = "localhost:8080"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDSNRequired    = errors.New("dsn is required for the postgres backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
	BackendMemory:   true,
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendSQLite,
		LogLevel: "warn",
		Defaults: AccountDefaults{
			ContactInfo:  DefaultContactInfo,
			UserAccount:  DefaultUserAccount,
			AdminAccount: DefaultAdminAccount,
		},
		Directory: DirectoryConfig{
			AdminAccount:    DefaultAdminAccount,
			ExcludedContact: DefaultExcludedContact,
		},
		Server: ServerConfig{Addr: DefaultServerAddr},
	}
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendPostgres && c.DSN == "" {
		return ErrDSNRequired
	}
	return nil
}
