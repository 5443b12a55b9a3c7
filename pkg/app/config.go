package app

import (
	"os"
	"path/filepath"
	"time"

	va "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/canarysec/canary-scanner/pkg/app/vars"
	"github.com/canarysec/canary-scanner/pkg/codectx"
	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/report"
	"github.com/canarysec/canary-scanner/pkg/valid"
)

type (

	// Config is the root configuration object. Values come from config
	// files merged in order, then env var overrides for credentials.
	Config struct {

		// Output and workflow
		LogLevel       string `param:"log-level"`
		LogFile        string `param:"log-file"`
		NonInteractive bool   `param:"non-interactive"`
		OutputFile     string `param:"output-file"`
		OutputJSON     bool   `param:"output-json"`

		Scan       ScanConfig       `param:"scan"`
		Validation ValidationConfig `param:"validation"`
		Service    ServiceConfig    `param:"service"`
	}

	ScanConfig struct {
		Target                string   `param:"target"`
		RuleFile              string   `param:"rule-file"`
		WorkerCount           int      `param:"worker-count"`
		FailOn                string   `param:"fail-on"`
		ContextFilter         []string `param:"context-filter"`
		IncludeFalsePositives bool     `param:"include-false-positives"`
		VerboseSecretDisplay  bool     `param:"verbose-secret-display"`

		// Extra false positive screening on top of the curated sets
		KnownTestValues     []string `param:"known-test-values"`
		PlaceholderPatterns []string `param:"placeholder-patterns"`

		// Provenance, attached to every finding
		SourceType  string `param:"source-type"`
		CommitHash  string `param:"commit-hash"`
		BranchName  string `param:"branch-name"`
		AuthorEmail string `param:"author-email"`
	}

	ValidationConfig struct {
		Enabled      bool          `param:"enabled"`
		ServiceURL   string        `param:"service-url"`
		APIKey       string        `param:"api-key"`
		JobStoreDir  string        `param:"job-store-dir"`
		JobTTL       time.Duration `param:"job-ttl"`
		QueueSize    int           `param:"queue-size"`
		WorkerCount  int           `param:"worker-count"`
		Timeout      time.Duration `param:"timeout"`
		PollInterval time.Duration `param:"poll-interval"`
	}

	ServiceConfig struct {
		BindAddress string `param:"bind-address"`
		APIKey      string `param:"api-key"`
	}
)

func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Scan: ScanConfig{
			WorkerCount: 4,
			FailOn:      string(report.FailOnHigh),
			SourceType:  "filesystem",
		},
		Validation: ValidationConfig{
			JobStoreDir:  "./validation-jobs",
			JobTTL:       24 * time.Hour,
			QueueSize:    100,
			WorkerCount:  2,
			Timeout:      60 * time.Second,
			PollInterval: 250 * time.Millisecond,
		},
		Service: ServiceConfig{
			BindAddress: ":8450",
		},
	}
}

// BuildConfig merges config files in order into the defaults, then
// applies env var overrides for credentials.
func BuildConfig(cfgFiles []string) (result *Config, err error) {
	result = NewConfig()

	if len(cfgFiles) == 0 {
		if path := defaultConfigFile(); path != "" {
			cfgFiles = []string{path}
		}
	}

	if err = MergeInConfigFileData(result, cfgFiles); err != nil {
		err = errors.WithMessage(err, "unable to merge in config file data")
		return
	}

	mergeInEnvVars(result)

	return
}

func MergeInConfigFileData(cfg *Config, cfgFiles []string) (err error) {
	if len(cfgFiles) == 0 {
		return
	}

	vpr := viper.New()
	for _, cfgFile := range cfgFiles {
		if err = va.Validate(cfgFile, va.Required, valid.ExistingFile); err != nil {
			err = errors.WithMessagev(err, "invalid value for \"config\"", cfgFile)
			return
		}

		vpr.SetConfigFile(cfgFile)
		if err = vpr.MergeInConfig(); err != nil {
			err = errors.Wrapv(err, "unable to merge config file", cfgFile)
			return
		}
	}

	var metadata mapstructure.Metadata
	if err = vpr.Unmarshal(cfg, configureConfigFileDecode(&metadata)); err != nil {
		err = errors.Wrap(err, "unable to unmarshal config")
		return
	}

	if len(metadata.Unused) > 0 {
		err = errors.Errorv("there are extra values in your config", metadata.Unused)
		return
	}

	return
}

// defaultConfigFile points at $HOME/.canary-scanner.yaml when no
// config files were passed and that file exists.
func defaultConfigFile() (result string) {
	hd, err := homedir.Dir()
	if err != nil {
		return
	}

	path := filepath.Join(hd, "."+vars.Name+".yaml")
	if _, err = os.Stat(path); err != nil {
		return
	}

	result = path
	return
}

// API keys can come from the environment so they stay out of config
// files.
func mergeInEnvVars(cfg *Config) {
	if v := os.Getenv(vars.EnvVarPrefix + "VALIDATION_API_KEY"); v != "" {
		cfg.Validation.APIKey = v
	}
	if v := os.Getenv(vars.EnvVarPrefix + "SERVICE_API_KEY"); v != "" {
		cfg.Service.APIKey = v
	}
}

func configureConfigFileDecode(metadata *mapstructure.Metadata) viper.DecoderConfigOption {
	return func(c *mapstructure.DecoderConfig) {
		c.TagName = vars.ConfigParamTag
		c.Metadata = metadata
		c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}
}

func (cfg *Config) Validate() error {
	return va.ValidateStruct(cfg,
		va.Field(&cfg.LogLevel, valid.OneOf(logg.ValidLevelValues()...)),
		va.Field(&cfg.Scan),
		va.Field(&cfg.Validation),
	)
}

// ValidateForScan adds the requirements of the scan command on top of
// the base rules.
func (cfg *Config) ValidateForScan() (err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	return va.ValidateStruct(&cfg.Scan,
		va.Field(&cfg.Scan.Target, va.Required),
	)
}

// ValidateForServe adds the requirements of the serve command.
func (cfg *Config) ValidateForServe() (err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	return va.ValidateStruct(&cfg.Service,
		va.Field(&cfg.Service.BindAddress, va.Required),
		va.Field(&cfg.Service.APIKey, va.Required),
	)
}

func (cfg ScanConfig) Validate() error {
	return va.ValidateStruct(&cfg,
		va.Field(&cfg.RuleFile, valid.ExistingFile),
		va.Field(&cfg.WorkerCount, va.Min(1)),
		va.Field(&cfg.FailOn, valid.OneOf(failOnValues()...)),
		va.Field(&cfg.ContextFilter, va.Each(valid.OneOf(contextTypeValues()...))),
		va.Field(&cfg.PlaceholderPatterns, va.Each(valid.RegexpPattern)),
	)
}

func (cfg ValidationConfig) Validate() error {
	return va.ValidateStruct(&cfg,
		va.Field(&cfg.QueueSize, va.Min(1)),
		va.Field(&cfg.WorkerCount, va.Min(1)),
		va.Field(&cfg.JobTTL, va.Min(time.Minute)),
		va.Field(&cfg.Timeout, va.Min(time.Second)),
		va.Field(&cfg.PollInterval, va.Min(10*time.Millisecond)),
	)
}

func failOnValues() (result []string) {
	for _, f := range report.FailOns() {
		result = append(result, string(f))
	}
	return
}

func contextTypeValues() (result []string) {
	for _, c := range codectx.ContextTypes() {
		result = append(result, string(c))
	}
	return
}
