package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/ssoconfig/internal/paths"
	"github.com/mesh-intelligence/ssoconfig/pkg/types"
)

const envPrefix = "SSOCONFIG"

// Config keys. data_dir is resolved through paths so that its environment
// variable keeps the precedence paths gives it.
const (
	cfgKeyBackend  = "backend"
	cfgKeyDataDir  = "data_dir"
	cfgKeyDSN      = "dsn"
	cfgKeyLogLevel = "log_level"
)

// envKeys are the config keys that SSOCONFIG_* variables may override.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyDSN,
	cfgKeyLogLevel,
	"defaults.contact_info",
	"defaults.user_account",
	"defaults.admin_account",
	"directory.admin_account",
	"directory.excluded_contact",
	"server.addr",
}

// loadConfig resolves the config directory, writes a default config.yaml
// on first run and returns the merged configuration. Precedence is flag,
// environment, config file, then built-in default.
func loadConfig(opts *rootOptions) (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(opts.configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return types.Config{}, "", systemError("ensure default config", err)
	}

	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, "", fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return types.Config{}, "", fmt.Errorf("read config: %w", err)
	}

	if opts.backend != "" {
		v.Set(cfgKeyBackend, opts.backend)
	}
	if opts.logLevel != "" {
		v.Set(cfgKeyLogLevel, opts.logLevel)
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir, err = paths.ResolveDataDir(opts.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	return cfg, configDir, nil
}

func setDefaults(v *viper.Viper, cfg types.Config) {
	v.SetDefault(cfgKeyBackend, cfg.Backend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDSN, "")
	v.SetDefault(cfgKeyLogLevel, cfg.LogLevel)
	v.SetDefault("defaults.contact_info", cfg.Defaults.ContactInfo)
	v.SetDefault("defaults.user_account", cfg.Defaults.UserAccount)
	v.SetDefault("defaults.admin_account", cfg.Defaults.AdminAccount)
	v.SetDefault("directory.admin_account", cfg.Directory.AdminAccount)
	v.SetDefault("directory.excluded_contact", cfg.Directory.ExcludedContact)
	v.SetDefault("server.addr", cfg.Server.Addr)
}

// ensureDefaultConfigFile writes config.yaml with the built-in defaults if
// the file does not exist yet. An existing file is left alone.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	content := "# ssoconfig configuration\n" + string(data)
	return os.WriteFile(path, []byte(content), 0o644)
}
