// Package config loads, merges, and validates the CLI configuration from
// defaults, an optional config file, a named profile, environment
// variables, and command-line flags, in ascending precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/voiceweave/voice-weaver/internal/cli/aliascmd"
	"github.com/voiceweave/voice-weaver/pkg/weaver"
	"github.com/voiceweave/voice-weaver/pkg/weaver/alias"
)

const (
	// EnvPrefix namespaces the environment variables read by viper,
	// e.g. VOICEWEAVER_CONCURRENCY.
	EnvPrefix = "VOICEWEAVER"
	// DefaultConfigName is the config file basename searched for when no
	// --config flag is given.
	DefaultConfigName = "voice-weaver"
)

// LoadAndValidate loads configuration from all sources, validates the
// merged result, derives values such as absolute paths and parsed
// durations, sets up the logger, and injects the alias resolver when
// contacts or an alias command are configured. It returns the populated
// Options and the logger the CLI should use from here on.
func LoadAndValidate(cfgFile, profileName, appVersion string, verbose bool, flags *pflag.FlagSet) (weaver.Options, *slog.Logger, error) {
	var opts weaver.Options
	v := viper.New()

	// Basic logger for errors raised before the real logger exists.
	tempLogHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	tempLogger := slog.New(tempLogHandler)

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}

		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}

	// --- Apply Profile ---
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			err := fmt.Errorf("failed to load profile '%s' settings from config file '%s'", profileName, v.ConfigFileUsed())
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	// Each binding pairs a viper config key with the flag that overrides it.
	flagBindings := []struct{ key, flag string }{
		{"onError", "onError"},
		{"concurrency", "concurrency"},
		{"cacheFormat", "cache-format"},
		{"format", "format"},
		{"reportFormat", "report-format"},
		{"template", "template"},
		{"contacts", "contacts"},
		{"selfName", "self-name"},
		{"poolSubdir", "pool-subdir"},
		{"defaultEncoding", "default-encoding"},
		{"watch.debounce", "watch-debounce"},
		{"alias.timeout", "alias-timeout"},
		{"frontMatter.enabled", "front-matter"},
		{"frontMatter.format", "front-matter-format"},
	}

	for _, binding := range flagBindings {
		flag := flags.Lookup(binding.flag)
		if flag != nil {
			if err := v.BindPFlag(binding.key, flag); err != nil {
				tempLogger.Error("Error binding flag", slog.String("flag", binding.flag), slog.Any("error", err))
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", binding.flag, err)
			}
		} else {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", binding.flag))
		}
	}

	// The templateFile config key and the --template flag are the same
	// setting.
	v.RegisterAlias("templateFile", "template")

	// --- Unmarshal Final Configuration ---
	opts.AppVersion = appVersion

	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// --- Explicitly Apply Flag Values for Core Paths ---
	// Command-line paths take absolute precedence over file and env values.
	if flags.Changed("input") {
		if inputVal, _ := flags.GetString("input"); inputVal != "" {
			opts.InputPath = inputVal
			tempLogger.Debug("Input path explicitly set from flag", slog.String("path", opts.InputPath))
		}
	}
	if flags.Changed("output") {
		if outputVal, _ := flags.GetString("output"); outputVal != "" {
			opts.OutputPath = outputVal
			tempLogger.Debug("Output path explicitly set from flag", slog.String("path", opts.OutputPath))
		}
	}

	// --- Explicitly Handle Flag Overrides for Booleans ---
	// Several of these fields are not unmarshalled from config at all
	// (IgnoreCacheRead, ClearCache, WatchMode); the flag is their only
	// source. The rest get the explicit treatment so a flag always wins.
	if flags.Changed("verbose") {
		opts.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("force") {
		opts.ForceOverwrite, _ = flags.GetBool("force")
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	if flags.Changed("no-cache") {
		opts.IgnoreCacheRead, _ = flags.GetBool("no-cache")
	}
	if flags.Changed("clear-cache") {
		opts.ClearCache, _ = flags.GetBool("clear-cache")
	}
	if flags.Changed("watch") {
		opts.WatchMode, _ = flags.GetBool("watch")
	}
	if flags.Changed("copy-attachments") {
		opts.CopyAttachments, _ = flags.GetBool("copy-attachments")
	}

	// --- Alias Command Flag ---
	// The flag form is a single string split on whitespace; the config file
	// form is a list and passes through Unmarshal.
	if flags.Changed("alias-command") {
		if cmdVal, _ := flags.GetString("alias-command"); cmdVal != "" {
			opts.Alias.Command = strings.Fields(cmdVal)
		}
	}

	// --- Setup Final Logger ---
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	// --- Parse Duration Strings ---
	debounce, err := parseDurationSetting(opts.Watch.Debounce, "watch.debounce", "watch-debounce",
		weaver.DefaultWatchDebounce, logger, flags)
	if err != nil {
		return opts, logger, err
	}
	opts.WatchDebounce = debounce

	aliasTimeout, err := parseDurationSetting(opts.Alias.Timeout, "alias.timeout", "alias-timeout",
		weaver.DefaultAliasTimeout, logger, flags)
	if err != nil {
		return opts, logger, err
	}
	opts.AliasCommandTimeout = aliasTimeout

	// --- Final Validation and Derivations ---
	if err := validateAndDeriveOptions(&opts, logger, flags); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)

	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options.
func setDefaults(v *viper.Viper) {
	// --- Behavior & Control ---
	v.SetDefault("forceOverwrite", false)
	v.SetDefault("verbose", false)
	v.SetDefault("tuiEnabled", weaver.DefaultTuiEnabled)
	v.SetDefault("onError", string(weaver.DefaultOnErrorMode))

	// --- Performance & Caching ---
	v.SetDefault("concurrency", weaver.DefaultConcurrency)
	v.SetDefault("cache", weaver.DefaultCacheEnabled)
	v.SetDefault("cacheFormat", weaver.DefaultCacheFormat)

	// --- Input Handling ---
	v.SetDefault("defaultEncoding", weaver.DefaultEncoding)
	v.SetDefault("poolSubdir", weaver.DefaultPoolSubdir)
	v.SetDefault("attachmentExtensions", []string{})

	// --- Conversation Identity ---
	v.SetDefault("selfName", weaver.DefaultSelfName)
	v.SetDefault("maxIdParticipants", weaver.DefaultMaxIDParticipants)
	v.SetDefault("maxIdLength", weaver.DefaultMaxIDLength)

	// --- Output & Formatting ---
	v.SetDefault("format", string(weaver.DefaultDocumentFormat))
	v.SetDefault("reportFormat", string(weaver.DefaultReportFormat))
	v.SetDefault("templateFile", "")
	v.SetDefault("copyAttachments", weaver.DefaultCopyAttachments)
	v.SetDefault("frontMatter.enabled", false)
	v.SetDefault("frontMatter.format", weaver.DefaultFrontMatterFormat)
	v.SetDefault("frontMatter.static", map[string]interface{}{})

	// --- Aliases ---
	v.SetDefault("contacts", "")
	v.SetDefault("alias.command", []string{})
	v.SetDefault("alias.timeout", weaver.DefaultAliasTimeoutString)

	// --- Workflow Features ---
	v.SetDefault("watch.debounce", weaver.DefaultWatchDebounceString)
}

// parseDurationSetting parses a duration string from config. An invalid
// value set explicitly via flag is fatal; an invalid value from file or
// env logs a warning and falls back to the default.
func parseDurationSetting(value, key, flagName string, fallback time.Duration, logger *slog.Logger, flags *pflag.FlagSet) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		if flags.Changed(flagName) {
			err = fmt.Errorf("%w: invalid duration '%s' for key '%s': %w", weaver.ErrConfigValidation, value, key, err)
			logger.Error(err.Error(), slog.String("key", key), slog.String("value", value))
			return 0, err
		}
		logger.Warn("Could not parse duration, using default",
			slog.String("key", key),
			slog.String("value", value),
			slog.Duration("default", fallback),
			slog.String("error", err.Error()))
		return fallback, nil
	}
	if d < 0 {
		err = fmt.Errorf("%w: invalid negative duration '%s' for key '%s'", weaver.ErrConfigValidation, value, key)
		logger.Error(err.Error(), slog.String("key", key), slog.String("value", value))
		return 0, err
	}
	return d, nil
}

// isValidEnumValue checks if a value is present in the allowed set.
// Case-sensitive comparison.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on the populated
// Options struct, derives absolute paths, and injects the alias resolver.
// Errors are wrapped with weaver.ErrConfigValidation.
func validateAndDeriveOptions(opts *weaver.Options, logger *slog.Logger, flags *pflag.FlagSet) error {
	// === Path Validations ===
	if opts.InputPath == "" {
		err := fmt.Errorf("%w: input path is required (-i, --input)", weaver.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "inputPath"))
		return err
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", weaver.ErrConfigValidation, opts.InputPath, err)
		logger.Error(err.Error(), slog.String("key", "inputPath"), slog.String("value", opts.InputPath))
		return err
	}
	opts.InputPath = absInput
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: input path '%s' does not exist", weaver.ErrConfigValidation, opts.InputPath)
		} else {
			err = fmt.Errorf("%w: cannot access input path '%s': %w", weaver.ErrConfigValidation, opts.InputPath, err)
		}
		logger.Error(err.Error(), slog.String("key", "inputPath"), slog.String("value", opts.InputPath))
		return err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%w: input path '%s' is not a directory", weaver.ErrConfigValidation, opts.InputPath)
		logger.Error(err.Error(), slog.String("key", "inputPath"), slog.String("value", opts.InputPath))
		return err
	}
	logger.Debug("Validated input path", slog.String("path", opts.InputPath))

	if opts.OutputPath == "" {
		err := fmt.Errorf("%w: output path is required (-o, --output)", weaver.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "outputPath"))
		return err
	}
	absOutput, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute output path '%s': %w", weaver.ErrConfigValidation, opts.OutputPath, err)
		logger.Error(err.Error(), slog.String("key", "outputPath"), slog.String("value", opts.OutputPath))
		return err
	}
	opts.OutputPath = absOutput
	if err := checkOutputDir(opts, logger); err != nil {
		return err
	}
	if mkdirErr := os.MkdirAll(opts.OutputPath, 0o755); mkdirErr != nil {
		err := fmt.Errorf("%w: cannot create or access output directory '%s': %w", weaver.ErrConfigValidation, opts.OutputPath, mkdirErr)
		logger.Error(err.Error(), slog.String("key", "outputPath"), slog.String("value", opts.OutputPath))
		return err
	}
	logger.Debug("Resolved and verified output path", slog.String("path", opts.OutputPath))

	// === Enum String Validations ===
	allowedOnError := []weaver.OnErrorMode{weaver.OnErrorContinue, weaver.OnErrorStop}
	if !isValidEnumValue(opts.OnErrorMode, allowedOnError) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'onError' (flag --onError). Allowed: %v", weaver.ErrConfigValidation, opts.OnErrorMode, allowedOnError)
		logger.Error(err.Error(), slog.String("key", "onError"), slog.String("value", string(opts.OnErrorMode)))
		return err
	}
	allowedFormat := []weaver.DocumentFormat{weaver.DocumentFormatHTML, weaver.DocumentFormatMarkdown}
	if !isValidEnumValue(opts.DocumentFormat, allowedFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'format' (flag --format). Allowed: %v", weaver.ErrConfigValidation, opts.DocumentFormat, allowedFormat)
		logger.Error(err.Error(), slog.String("key", "format"), slog.String("value", string(opts.DocumentFormat)))
		return err
	}
	allowedReportFormat := []weaver.ReportFormat{weaver.ReportFormatText, weaver.ReportFormatJSON}
	if !isValidEnumValue(opts.ReportFormat, allowedReportFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'reportFormat' (flag --report-format). Allowed: %v", weaver.ErrConfigValidation, opts.ReportFormat, allowedReportFormat)
		logger.Error(err.Error(), slog.String("key", "reportFormat"), slog.String("value", string(opts.ReportFormat)))
		return err
	}
	allowedCacheFormat := []string{"gob", "json"}
	if !isValidEnumValue(opts.CacheFormat, allowedCacheFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'cacheFormat' (flag --cache-format). Allowed: %v", weaver.ErrConfigValidation, opts.CacheFormat, allowedCacheFormat)
		logger.Error(err.Error(), slog.String("key", "cacheFormat"), slog.String("value", opts.CacheFormat))
		return err
	}
	if opts.FrontMatter.Enabled {
		allowedFrontMatterFormat := []string{"yaml", "toml"}
		if !isValidEnumValue(opts.FrontMatter.Format, allowedFrontMatterFormat) {
			err := fmt.Errorf("%w: invalid value '%s' for key 'frontMatter.format'. Allowed: %v", weaver.ErrConfigValidation, opts.FrontMatter.Format, allowedFrontMatterFormat)
			logger.Error(err.Error(), slog.String("key", "frontMatter.format"), slog.String("value", opts.FrontMatter.Format))
			return err
		}
	}

	// === Numeric Range Validations ===
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", weaver.ErrConfigValidation, opts.Concurrency)
		logger.Error(err.Error(), slog.String("key", "concurrency"), slog.Int("value", opts.Concurrency))
		return err
	}
	if opts.MaxIDParticipants < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'maxIdParticipants'. Must be >= 0", weaver.ErrConfigValidation, opts.MaxIDParticipants)
		logger.Error(err.Error(), slog.String("key", "maxIdParticipants"), slog.Int("value", opts.MaxIDParticipants))
		return err
	}
	if opts.MaxIDLength < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'maxIdLength'. Must be >= 0", weaver.ErrConfigValidation, opts.MaxIDLength)
		logger.Error(err.Error(), slog.String("key", "maxIdLength"), slog.Int("value", opts.MaxIDLength))
		return err
	}

	// === Pool Subdirectory ===
	if filepath.IsAbs(opts.PoolSubdir) {
		err := fmt.Errorf("%w: pool subdirectory '%s' must be relative to the input path", weaver.ErrConfigValidation, opts.PoolSubdir)
		logger.Error(err.Error(), slog.String("key", "poolSubdir"), slog.String("value", opts.PoolSubdir))
		return err
	}

	// === Custom Template ===
	if opts.TemplatePath != "" {
		absTplPath, pathErr := filepath.Abs(opts.TemplatePath)
		if pathErr != nil {
			err := fmt.Errorf("%w: cannot resolve absolute path for template file '%s': %w", weaver.ErrConfigValidation, opts.TemplatePath, pathErr)
			logger.Error(err.Error(), slog.String("key", "templateFile"), slog.String("value", opts.TemplatePath))
			return err
		}
		opts.TemplatePath = absTplPath

		tplInfo, statErr := os.Stat(opts.TemplatePath)
		if statErr != nil {
			err := fmt.Errorf("%w: template file '%s' does not exist or cannot be accessed: %w", weaver.ErrConfigValidation, opts.TemplatePath, statErr)
			logger.Error(err.Error(), slog.String("key", "templateFile"), slog.String("value", opts.TemplatePath))
			return err
		}
		if tplInfo.IsDir() {
			err := fmt.Errorf("%w: template path '%s' is a directory, not a file", weaver.ErrConfigValidation, opts.TemplatePath)
			logger.Error(err.Error(), slog.String("key", "templateFile"), slog.String("value", opts.TemplatePath))
			return err
		}
		logger.Debug("Validated custom template path", slog.String("path", opts.TemplatePath))
	}

	// === Logger Sanity ===
	if opts.Logger == nil {
		return fmt.Errorf("internal setup error: logger handler is nil in validateAndDeriveOptions")
	}

	// === Alias Resolver Injection ===
	if err := buildAliasResolver(opts, logger); err != nil {
		return err
	}

	// === TUI / Verbose Interplay ===
	// Verbose logging and the TUI share stderr; verbose always wins.
	if opts.Verbose {
		if opts.TuiEnabled && !flags.Changed("no-tui") {
			logger.Debug("Verbose mode enabled, TUI disabled")
		}
		opts.TuiEnabled = false
	}

	logger.Debug("Final derived settings validated",
		slog.Int("concurrency", opts.Concurrency),
		slog.String("format", string(opts.DocumentFormat)),
		slog.String("poolSubdir", opts.PoolSubdir),
		slog.Duration("watchDebounce", opts.WatchDebounce),
		slog.Duration("aliasTimeout", opts.AliasCommandTimeout),
		slog.Bool("tuiEnabledEffective", opts.TuiEnabled),
	)

	return nil
}

// checkOutputDir guards against clobbering an unrelated populated
// directory. A non-empty output directory is accepted when --force is set
// or when it already contains artifacts of a previous run (the cache
// file, an index document, or the attachments directory).
func checkOutputDir(opts *weaver.Options, logger *slog.Logger) error {
	entries, err := os.ReadDir(opts.OutputPath)
	if err != nil {
		// Missing directory is fine; MkdirAll follows.
		return nil
	}
	if len(entries) == 0 || opts.ForceOverwrite {
		return nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == weaver.CacheFileName ||
			name == weaver.AttachmentsDirName ||
			strings.HasPrefix(name, weaver.IndexFileBase+".") {
			logger.Debug("Output directory contains a previous run, proceeding", slog.String("path", opts.OutputPath))
			return nil
		}
	}
	err = fmt.Errorf("%w: output directory '%s' is not empty; use --force to write into it", weaver.ErrConfigValidation, opts.OutputPath)
	logger.Error(err.Error(), slog.String("key", "outputPath"), slog.String("value", opts.OutputPath))
	return err
}

// buildAliasResolver assembles the resolver chain from the contacts file
// and the external lookup command. With neither configured the field is
// left nil and the engine falls back to identity resolution.
func buildAliasResolver(opts *weaver.Options, logger *slog.Logger) error {
	var resolvers alias.Chain

	if opts.ContactsPath != "" {
		absContacts, pathErr := filepath.Abs(opts.ContactsPath)
		if pathErr != nil {
			err := fmt.Errorf("%w: cannot resolve absolute path for contacts file '%s': %w", weaver.ErrConfigValidation, opts.ContactsPath, pathErr)
			logger.Error(err.Error(), slog.String("key", "contacts"), slog.String("value", opts.ContactsPath))
			return err
		}
		opts.ContactsPath = absContacts

		static, loadErr := alias.LoadFile(opts.ContactsPath)
		if loadErr != nil {
			err := fmt.Errorf("%w: failed to load contacts file '%s': %w", weaver.ErrConfigValidation, opts.ContactsPath, loadErr)
			logger.Error(err.Error(), slog.String("key", "contacts"), slog.String("value", opts.ContactsPath))
			return err
		}
		resolvers = append(resolvers, static)
		logger.Debug("Loaded contacts file", slog.String("path", opts.ContactsPath))
	}

	if len(opts.Alias.Command) > 0 {
		resolvers = append(resolvers, aliascmd.NewCommandResolver(opts.Logger, opts.Alias.Command, opts.AliasCommandTimeout))
		logger.Debug("Alias lookup command configured", slog.String("command", strings.Join(opts.Alias.Command, " ")))
	}

	switch len(resolvers) {
	case 0:
		// Leave nil; the engine substitutes identity resolution.
	case 1:
		opts.AliasResolver = resolvers[0]
	default:
		opts.AliasResolver = resolvers
	}
	return nil
}
