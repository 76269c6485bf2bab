// Package config provides application configuration with precedence
// command-line flags > environment variables > .env file > defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/chaptifyapp/chaptify/internal/errors"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Spotify  SpotifyConfig
	Tools    ToolsConfig
	Pipeline PipelineConfig
	Run      RunConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// SpotifyConfig holds catalog API credentials and throttling.
// Either an access token or a client id/secret pair is required.
type SpotifyConfig struct {
	ClientID          string
	ClientSecret      string
	AccessToken       string
	RequestsPerSecond float64 `validate:"gt=0"`
	Burst             int     `validate:"gte=1"`
}

// ToolsConfig holds ffmpeg toolchain settings.
type ToolsConfig struct {
	FFmpegPath   string
	FFprobePath  string
	RemuxTimeout time.Duration `validate:"gt=0"`
}

// PipelineConfig holds matching and batch settings.
type PipelineConfig struct {
	SearchLimit    int           `validate:"gte=1,lte=50"`
	DriftTolerance float64       `validate:"gt=0,lte=1"`
	Retries        int           `validate:"gte=1"`
	RetryBase      time.Duration `validate:"gt=0"`
	Parallelism    int           `validate:"gte=1"`
}

// RunConfig holds the per-invocation input and output selection.
// Exactly one of File, List, or Dir must be set.
type RunConfig struct {
	File         string
	List         string
	Dir          string
	Output       string
	OutDir       string
	DryRun       bool
	KeepOriginal bool
}

// Load parses args (not including the program name) and assembles the
// configuration with full precedence handling.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("chaptify", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	clientID := fs.String("client-id", "", "Spotify client ID")
	clientSecret := fs.String("client-secret", "", "Spotify client secret")
	accessToken := fs.String("access-token", "", "Spotify access token (skips client-credentials exchange)")

	ffmpegPath := fs.String("ffmpeg-path", "", "Path to ffmpeg binary (default: from PATH)")
	ffprobePath := fs.String("ffprobe-path", "", "Path to ffprobe binary (default: from PATH)")
	remuxTimeout := fs.String("remux-timeout", "", "Timeout for a single remux (default: 5m)")

	searchLimit := fs.String("search-limit", "", "Catalog search result limit (default: 10)")
	driftTolerance := fs.String("drift-tolerance", "", "Max relative catalog/file duration drift (default: 0.15)")
	parallelism := fs.String("parallelism", "", "Concurrent files in batch mode (default: 2)")

	file := fs.String("file", "", "Audiobook file to chapterize")
	list := fs.String("list", "", "Text file listing audiobook paths, one per line")
	dir := fs.String("dir", "", "Directory of audiobook files")
	output := fs.String("output", "", "Output path (single-file mode only)")
	outDir := fs.String("out-dir", "", "Directory for outputs, keeping base names")
	dryRun := fs.Bool("dry-run", false, "Print chapter metadata without remuxing")
	keepOriginal := fs.Bool("keep-original", false, "Write a _chapterized sibling instead of replacing")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Validation(err.Error())
	}

	// Load .env if present; real environment variables win over it.
	_ = godotenv.Load(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Spotify: SpotifyConfig{
			ClientID:          getConfigValue(*clientID, "SPOTIFY_CLIENT_ID", ""),
			ClientSecret:      getConfigValue(*clientSecret, "SPOTIFY_CLIENT_SECRET", ""),
			AccessToken:       getConfigValue(*accessToken, "SPOTIFY_ACCESS_TOKEN", ""),
			RequestsPerSecond: getFloatConfigValue("", "SPOTIFY_RPS", 2.0),
			Burst:             getIntConfigValue("", "SPOTIFY_BURST", 5),
		},
		Tools: ToolsConfig{
			FFmpegPath:  getConfigValue(*ffmpegPath, "FFMPEG_PATH", "ffmpeg"),
			FFprobePath: getConfigValue(*ffprobePath, "FFPROBE_PATH", "ffprobe"),
		},
		Pipeline: PipelineConfig{
			SearchLimit:    getIntConfigValue(*searchLimit, "SEARCH_LIMIT", 10),
			DriftTolerance: getFloatConfigValue(*driftTolerance, "DRIFT_TOLERANCE", 0.15),
			Retries:        getIntConfigValue("", "CATALOG_RETRIES", 3),
			Parallelism:    getIntConfigValue(*parallelism, "PARALLELISM", 2),
		},
		Run: RunConfig{
			File:         *file,
			List:         *list,
			Dir:          *dir,
			Output:       *output,
			OutDir:       *outDir,
			DryRun:       *dryRun,
			KeepOriginal: *keepOriginal,
		},
	}

	// A bare positional argument is the file to process.
	if cfg.Run.File == "" && fs.NArg() > 0 {
		cfg.Run.File = fs.Arg(0)
	}

	timeoutStr := getConfigValue(*remuxTimeout, "REMUX_TIMEOUT", "5m")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, errors.Validation(fmt.Sprintf("invalid remux timeout %q: %v", timeoutStr, err))
	}
	cfg.Tools.RemuxTimeout = timeout

	retryBaseStr := getConfigValue("", "CATALOG_RETRY_BASE", "250ms")
	retryBase, err := time.ParseDuration(retryBaseStr)
	if err != nil {
		return nil, errors.Validation(fmt.Sprintf("invalid retry base %q: %v", retryBaseStr, err))
	}
	cfg.Pipeline.RetryBase = retryBase

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges with the struct tags plus the cross-field
// rules validator tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.Validation(fmt.Sprintf("invalid %s: failed %q constraint", fe.Namespace(), fe.Tag()))
		}
		return errors.Validation(err.Error())
	}

	if c.Spotify.AccessToken == "" && (c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "") {
		return errors.Validation("spotify credentials required: set SPOTIFY_ACCESS_TOKEN or SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}

	sources := 0
	for _, s := range []string{c.Run.File, c.Run.List, c.Run.Dir} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return errors.Validation("no input: pass a file, -list, or -dir")
	}
	if sources > 1 {
		return errors.Validation("pass only one of file, -list, or -dir")
	}
	if c.Run.Output != "" && c.Run.File == "" {
		return errors.Validation("-output applies to single-file mode only")
	}
	if c.Run.Output != "" && c.Run.OutDir != "" {
		return errors.Validation("-output and -out-dir are mutually exclusive")
	}
	if c.Run.KeepOriginal && (c.Run.Output != "" || c.Run.OutDir != "") {
		return errors.Validation("-keep-original conflicts with -output and -out-dir")
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var,
// or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return result
}
