package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-form-filler/internal/detect"
	"github.com/a3tai/mcp-form-filler/internal/layout"
	"github.com/a3tai/mcp-form-filler/internal/merge"
	"github.com/a3tai/mcp-form-filler/internal/render"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeHTTP   = "http"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
	DefaultMaxTokens   = 2048
	DefaultRetries     = 2

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "FORMFILL"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form filler
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "http"
	Host string
	Port int

	// Directory that every client-supplied path must stay inside
	Directory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64

	// Field detection
	Provider       string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiModel    string
	TextAPIKey     string
	TextModel      string
	TextBaseURL    string
	TextAuthHeader string
	MaxTokens      int
	DetectTimeout  time.Duration
	DetectRetries  int
	DetectInterval time.Duration
	RenderDPI      float64

	// Fallback layouts
	Template      string
	TemplatesFile string

	// Rendering and merging
	FontPath     string
	FontCacheDir string
	FontSize     float64
	DateLayout   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:           ModeStdio,
		Host:           DefaultHost,
		Port:           DefaultPort,
		Directory:      currentDir,
		Version:        "1.0.0",
		ServerName:     "mcp-form-filler",
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
		TextAuthHeader: "Authorization",
		MaxTokens:      DefaultMaxTokens,
		DetectTimeout:  detect.DefaultTimeout,
		DetectRetries:  DefaultRetries,
		RenderDPI:      detect.DefaultDPI,
		Template:       layout.DefaultTemplateID,
		FontSize:       render.DefaultFontSize,
		DateLayout:     merge.DefaultDateLayout,
	}
}

// LoadFromFlags loads a .env file if present, then parses command line
// flags and FORMFILL_* environment variables into a configuration
func LoadFromFlags() (*Config, error) {
	if err := loadDotEnv(os.Getenv(EnvPrefix + "_ENV_FILE")); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads KEY=VALUE pairs from path (".env" when empty) into the
// process environment. Variables already set win; a missing default file is
// not an error.
func loadDotEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("cannot read env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("cannot load env file %s: %w", path, err)
	}
	return nil
}

// flagBinding ties a viper key to its command line flag
type flagBinding struct {
	key  string
	flag string
}

var bindings = []flagBinding{
	{"mode", "mode"},
	{"host", "host"},
	{"port", "port"},
	{"dir", "dir"},
	{"loglevel", "loglevel"},
	{"maxfilesize", "maxfilesize"},
	{"provider", "provider"},
	{"openai_api_key", "openai-api-key"},
	{"openai_model", "openai-model"},
	{"openai_base_url", "openai-base-url"},
	{"gemini_api_key", "gemini-api-key"},
	{"gemini_model", "gemini-model"},
	{"text_api_key", "text-api-key"},
	{"text_model", "text-model"},
	{"text_base_url", "text-base-url"},
	{"text_auth_header", "text-auth-header"},
	{"max_tokens", "max-tokens"},
	{"detect_timeout", "detect-timeout"},
	{"detect_retries", "detect-retries"},
	{"detect_interval", "detect-interval"},
	{"render_dpi", "render-dpi"},
	{"template", "template"},
	{"templates_file", "templates-file"},
	{"font_path", "font-path"},
	{"font_cache_dir", "font-cache-dir"},
	{"font_size", "font-size"},
	{"date_layout", "date-layout"},
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	// provider keys also come from their conventional variables
	_ = viper.BindEnv("openai_api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("gemini_api_key", EnvPrefix+"_GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	_ = viper.BindEnv("text_api_key", EnvPrefix+"_TEXT_API_KEY", "TEXT_LLM_API_KEY")

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("provider", cfg.Provider)
	viper.SetDefault("text_auth_header", cfg.TextAuthHeader)
	viper.SetDefault("max_tokens", cfg.MaxTokens)
	viper.SetDefault("detect_timeout", cfg.DetectTimeout)
	viper.SetDefault("detect_retries", cfg.DetectRetries)
	viper.SetDefault("detect_interval", cfg.DetectInterval)
	viper.SetDefault("render_dpi", cfg.RenderDPI)
	viper.SetDefault("template", cfg.Template)
	viper.SetDefault("font_size", cfg.FontSize)
	viper.SetDefault("date_layout", cfg.DateLayout)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for MCP over SSE, 'http' for the upload API")
	pflag.String("host", cfg.Host, "Server host address (server and http modes)")
	pflag.Int("port", cfg.Port, "Server port (server and http modes)")
	pflag.String("dir", cfg.Directory, "Directory holding the forms and scans the server may read and write")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum document size in bytes")

	pflag.String("provider", cfg.Provider, "Field detection provider: openai, gemini or text (empty uses the fallback template only)")
	pflag.String("openai-api-key", "", "OpenAI API key")
	pflag.String("openai-model", cfg.OpenAIModel, "OpenAI vision model")
	pflag.String("openai-base-url", cfg.OpenAIBaseURL, "OpenAI-compatible API base URL")
	pflag.String("gemini-api-key", "", "Gemini API key")
	pflag.String("gemini-model", cfg.GeminiModel, "Gemini model")
	pflag.String("text-api-key", "", "API key for the text-only provider")
	pflag.String("text-model", cfg.TextModel, "Model for the text-only provider")
	pflag.String("text-base-url", cfg.TextBaseURL, "Chat completions base URL for the text-only provider")
	pflag.String("text-auth-header", cfg.TextAuthHeader, "Header carrying the text provider key (Authorization sends a bearer token)")
	pflag.Int("max-tokens", cfg.MaxTokens, "Maximum tokens in a detection answer")
	pflag.Duration("detect-timeout", cfg.DetectTimeout, "Time limit for one field detection, retries included")
	pflag.Int("detect-retries", cfg.DetectRetries, "Extra attempts on rate limits and provider errors")
	pflag.Duration("detect-interval", cfg.DetectInterval, "Minimum time between provider calls")
	pflag.Float64("render-dpi", cfg.RenderDPI, "Resolution of the page image sent to vision providers")

	pflag.String("template", cfg.Template, "Fallback template id")
	pflag.String("templates-file", cfg.TemplatesFile, "YAML or JSON file with extra fallback templates")

	pflag.String("font-path", cfg.FontPath, "TrueType font used to write values (Helvetica when empty)")
	pflag.String("font-cache-dir", cfg.FontCacheDir, "Directory for converted font metrics")
	pflag.Float64("font-size", cfg.FontSize, "Font size in points")
	pflag.String("date-layout", cfg.DateLayout, "Go time layout for date fields")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, b := range bindings {
		_ = viper.BindPFlag(b.key, pflag.Lookup(b.flag))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Form Filler - fills scanned forms with client data\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/forms                              "+
			"# stdio mode, fallback template only\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --provider=openai --dir=/srv/forms            "+
			"# stdio mode with vision detection\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081 --dir=/srv/forms    # MCP over SSE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=http --host=0.0.0.0 --dir=/srv/forms   # upload API\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every option is also read from %s_<OPTION>, e.g. %s_PROVIDER, %s_FONT_PATH.\n",
			EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY, GOOGLE_API_KEY and TEXT_LLM_API_KEY are used when no key is set.\n")
		fmt.Fprintf(os.Stderr, "  A .env file in the working directory (or %s_ENV_FILE) is loaded first.\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")

	cfg.Provider = viper.GetString("provider")
	cfg.OpenAIAPIKey = viper.GetString("openai_api_key")
	cfg.OpenAIModel = viper.GetString("openai_model")
	cfg.OpenAIBaseURL = viper.GetString("openai_base_url")
	cfg.GeminiAPIKey = viper.GetString("gemini_api_key")
	cfg.GeminiModel = viper.GetString("gemini_model")
	cfg.TextAPIKey = viper.GetString("text_api_key")
	cfg.TextModel = viper.GetString("text_model")
	cfg.TextBaseURL = viper.GetString("text_base_url")
	cfg.TextAuthHeader = viper.GetString("text_auth_header")
	cfg.MaxTokens = viper.GetInt("max_tokens")
	cfg.DetectTimeout = viper.GetDuration("detect_timeout")
	cfg.DetectRetries = viper.GetInt("detect_retries")
	cfg.DetectInterval = viper.GetDuration("detect_interval")
	cfg.RenderDPI = viper.GetFloat64("render_dpi")

	cfg.Template = viper.GetString("template")
	cfg.TemplatesFile = viper.GetString("templates_file")

	cfg.FontPath = viper.GetString("font_path")
	cfg.FontCacheDir = viper.GetString("font_cache_dir")
	cfg.FontSize = viper.GetFloat64("font_size")
	cfg.DateLayout = viper.GetString("date_layout")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer && c.Mode != ModeHTTP {
		return errors.New("mode must be one of 'stdio', 'server' or 'http'")
	}

	if c.Mode != ModeStdio && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("directory cannot be empty")
	}

	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.Provider != "" {
		if _, err := detect.ParseProvider(c.Provider); err != nil {
			return err
		}
	}

	if c.DetectTimeout <= 0 {
		return errors.New("detect timeout must be positive")
	}
	if c.DetectRetries < 0 {
		return errors.New("detect retries cannot be negative")
	}
	if c.DetectInterval < 0 {
		return errors.New("detect interval cannot be negative")
	}
	if c.RenderDPI < 36 || c.RenderDPI > 600 {
		return fmt.Errorf("render dpi must be between 36 and 600, got %g", c.RenderDPI)
	}
	if c.FontSize <= 0 {
		return errors.New("font size must be positive")
	}
	if c.DateLayout == "" {
		return errors.New("date layout cannot be empty")
	}

	return nil
}

// DetectionEnabled reports whether a detection provider is configured
func (c *Config) DetectionEnabled() bool {
	return c.Provider != ""
}

// DetectSettings returns the backend settings for the configured provider
func (c *Config) DetectSettings() (detect.Settings, error) {
	p, err := detect.ParseProvider(c.Provider)
	if err != nil {
		return detect.Settings{}, err
	}
	return detect.Settings{
		Provider: p,
		OpenAI: detect.OpenAIConfig{
			APIKey:    c.OpenAIAPIKey,
			Model:     c.OpenAIModel,
			BaseURL:   c.OpenAIBaseURL,
			MaxTokens: c.MaxTokens,
		},
		Gemini: detect.GeminiConfig{
			APIKey:    c.GeminiAPIKey,
			Model:     c.GeminiModel,
			MaxTokens: c.MaxTokens,
		},
		Text: detect.TextConfig{
			APIKey:     c.TextAPIKey,
			Model:      c.TextModel,
			BaseURL:    c.TextBaseURL,
			AuthHeader: c.TextAuthHeader,
			MaxTokens:  c.MaxTokens,
		},
	}, nil
}

// DetectOptions returns the detector limits
func (c *Config) DetectOptions() detect.Options {
	return detect.Options{
		Timeout:  c.DetectTimeout,
		Retries:  c.DetectRetries,
		Interval: c.DetectInterval,
		DPI:      c.RenderDPI,
	}
}

// RenderOptions returns the renderer settings
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		FontPath:     c.FontPath,
		FontCacheDir: c.FontCacheDir,
		FontSize:     c.FontSize,
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. API keys
// are never printed.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"Provider: %s, Template: %s, FontPath: %s, DetectTimeout: %s}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel, c.MaxFileSize,
		c.providerName(), c.Template, c.FontPath, c.DetectTimeout)
}

func (c *Config) providerName() string {
	if c.Provider == "" {
		return "none"
	}
	return c.Provider
}

// IsServerMode returns true if the MCP server runs over SSE
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsHTTPMode returns true if the upload API is served
func (c *Config) IsHTTPMode() bool {
	return c.Mode == ModeHTTP
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
