// Package config handles configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration (SPEC_FULL.md §7):
// capture/render/keyboard tunables plus the RFB listener's settings,
// generalized from the teacher's Config{Server, Client, Logging, Hosts}
// shape.
type Config struct {
	Capture  CaptureConfig  `mapstructure:"capture"`
	Render   RenderConfig   `mapstructure:"render"`
	Keyboard KeyboardConfig `mapstructure:"keyboard"`
	RFB      RFBConfig      `mapstructure:"rfb"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CaptureConfig holds the configuration record fields spec.md §6 names for
// the capture backends and scheduler.
type CaptureConfig struct {
	RateLimitHz          float64 `mapstructure:"rate_limit_hz"`
	SmootherTimeConstant float64 `mapstructure:"smoother_time_constant"`
	PreferDmabuf         bool    `mapstructure:"prefer_dmabuf"`
	OverlayCursor        bool    `mapstructure:"overlay_cursor"`
	OutputName           uint32  `mapstructure:"output_name"` // 0 = first advertised output
}

// RenderConfig holds the GPU renderer's settings.
type RenderConfig struct {
	DRMRenderNode string `mapstructure:"drm_render_node"`
}

// KeyboardConfig holds the xkb keymap selection spec.md §6 names.
type KeyboardConfig struct {
	Layout  string `mapstructure:"layout"`
	Variant string `mapstructure:"variant"`
}

// RFBConfig holds the RFB listener's settings, SPEC_FULL.md §6 (added).
type RFBConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Port          int    `mapstructure:"rfb_port"`
	SharedSecret  string `mapstructure:"shared_secret"`
	DesktopName   string `mapstructure:"desktop_name"`
}

// Addr joins ListenAddress and Port into a net.Listen-compatible address.
func (r RFBConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.ListenAddress, r.Port)
}

// AdminConfig holds the read-only SSH status console's settings.
type AdminConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Port               int    `mapstructure:"port"`
	HostKeyPath        string `mapstructure:"host_key_path"`
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`     // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults.
	DefaultConfig = Config{
		Capture: CaptureConfig{
			RateLimitHz:          20.0,
			SmootherTimeConstant: 1.0,
			PreferDmabuf:         true,
			OverlayCursor:        true,
			OutputName:           0,
		},
		Render: RenderConfig{
			DRMRenderNode: "/dev/dri/renderD128",
		},
		Keyboard: KeyboardConfig{
			Layout:  "us",
			Variant: "",
		},
		RFB: RFBConfig{
			ListenAddress: "0.0.0.0",
			Port:          5900,
			SharedSecret:  "",
			DesktopName:   getHostname(),
		},
		Admin: AdminConfig{
			Enabled:            false,
			Port:               2222,
			HostKeyPath:        "~/.config/rfbwld/admin_host_key",
			AuthorizedKeysPath: "~/.config/rfbwld/authorized_keys",
		},
		Logging: LoggingConfig{
			FileLogging: true,
			LogLevel:    "",
		},
	}

	// Global config instance.
	cfg *Config

	// Override config path if set.
	configPathOverride string
)

// SetConfigPath allows overriding the config path.
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system.
func Init() error {
	viper.SetConfigName("rfbwld")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/rfbwld") // System config directory (primary)

		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			userConfigPath := fmt.Sprintf("/home/%s/.config/rfbwld", sudoUser)
			viper.AddConfigPath(userConfigPath)
		} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "rfbwld"))
		}

		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	viper.SetDefault("capture.rate_limit_hz", DefaultConfig.Capture.RateLimitHz)
	viper.SetDefault("capture.smoother_time_constant", DefaultConfig.Capture.SmootherTimeConstant)
	viper.SetDefault("capture.prefer_dmabuf", DefaultConfig.Capture.PreferDmabuf)
	viper.SetDefault("capture.overlay_cursor", DefaultConfig.Capture.OverlayCursor)
	viper.SetDefault("capture.output_name", DefaultConfig.Capture.OutputName)

	viper.SetDefault("render.drm_render_node", DefaultConfig.Render.DRMRenderNode)

	viper.SetDefault("keyboard.layout", DefaultConfig.Keyboard.Layout)
	viper.SetDefault("keyboard.variant", DefaultConfig.Keyboard.Variant)

	viper.SetDefault("rfb.listen_address", DefaultConfig.RFB.ListenAddress)
	viper.SetDefault("rfb.rfb_port", DefaultConfig.RFB.Port)
	viper.SetDefault("rfb.shared_secret", DefaultConfig.RFB.SharedSecret)
	viper.SetDefault("rfb.desktop_name", DefaultConfig.RFB.DesktopName)

	viper.SetDefault("admin.enabled", DefaultConfig.Admin.Enabled)
	viper.SetDefault("admin.port", DefaultConfig.Admin.Port)
	viper.SetDefault("admin.host_key_path", DefaultConfig.Admin.HostKeyPath)
	viper.SetDefault("admin.authorized_keys_path", DefaultConfig.Admin.AuthorizedKeysPath)

	viper.SetDefault("logging.file_logging", DefaultConfig.Logging.FileLogging)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults.
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing).
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file.
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/rfbwld/rfbwld.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/rfbwld/rfbwld.toml"
	}

	return filepath.Join(home, ".config", "rfbwld", "rfbwld.toml")
}

// UpdateCapture persists a new capture configuration.
func UpdateCapture(c CaptureConfig) error {
	viper.Set("capture.rate_limit_hz", c.RateLimitHz)
	viper.Set("capture.smoother_time_constant", c.SmootherTimeConstant)
	viper.Set("capture.prefer_dmabuf", c.PreferDmabuf)
	viper.Set("capture.overlay_cursor", c.OverlayCursor)
	viper.Set("capture.output_name", c.OutputName)
	Get().Capture = c
	return Save()
}

// UpdateRFB persists a new RFB listener configuration.
func UpdateRFB(c RFBConfig) error {
	viper.Set("rfb.listen_address", c.ListenAddress)
	viper.Set("rfb.rfb_port", c.Port)
	viper.Set("rfb.shared_secret", c.SharedSecret)
	viper.Set("rfb.desktop_name", c.DesktopName)
	Get().RFB = c
	return Save()
}

// UpdateAdmin persists a new admin console configuration.
func UpdateAdmin(c AdminConfig) error {
	viper.Set("admin.enabled", c.Enabled)
	viper.Set("admin.port", c.Port)
	viper.Set("admin.host_key_path", c.HostKeyPath)
	viper.Set("admin.authorized_keys_path", c.AuthorizedKeysPath)
	Get().Admin = c
	return Save()
}

// ExpandPath resolves a leading "~" to the current user's home directory,
// the same shorthand viper-loaded path fields in this config use.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "rfbwld"
	}
	return hostname
}
