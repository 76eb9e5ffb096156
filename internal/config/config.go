package config

import (
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// PasswordEnv is the environment variable that supplies the personal access
// token used as the basic-auth password.
const PasswordEnv = "DEVOPS_PAT"

const envPrefix = "ADOEXPORT"

type WorkItems struct {
	// Types is the list of work item types matched on both ends of a
	// hierarchy link.
	Types []string
	// HistoryWord is matched with "contains words" against the work item
	// history of the link target.
	HistoryWord string `yaml:"historyword"`
	// AssignedTo is an identity ("Display Name <email>" or the unique name)
	// matched against the link target's assignee. Defaults to the username.
	AssignedTo string `yaml:"assignedto"`
	// Query replaces the generated WIQL entirely when non-empty.
	Query string `yaml:"query,omitempty"`
}

type Config struct {
	BaseURL      string `yaml:"baseurl"`
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Author filters the commit search. Defaults to Username.
	Author   string `yaml:"author"`
	FromDate string `yaml:"fromdate"`

	OutputDir     string `yaml:"outputdir"`
	CommitsDir    string `yaml:"commitsdir"`
	WorkItemsFile string `yaml:"workitemsfile"`

	IncludeHidden bool `yaml:"includehidden"`
	CommitTop     int  `yaml:"committop"`
	BatchSize     int  `yaml:"batchsize"`
	// Timeout is the per-request timeout. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	WorkItems WorkItems `yaml:"workitems"`
}

func setDefaults(v *viper.Viper) {
	// Keys without a meaningful default are still registered so that
	// AutomaticEnv picks them up during Unmarshal.
	for _, key := range []string{
		"organization", "project", "username", "author",
		"workitems.historyword", "workitems.assignedto", "workitems.query",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("baseurl", "https://dev.azure.com")
	v.SetDefault("fromdate", "2019-01-01")
	v.SetDefault("outputdir", "./out")
	v.SetDefault("commitsdir", "commits")
	v.SetDefault("workitemsfile", "wi.json")
	v.SetDefault("includehidden", false)
	v.SetDefault("committop", 1000000)
	v.SetDefault("batchsize", 200)
	v.SetDefault("timeout", "0s")
	v.SetDefault("workitems.types", []string{"User Story", "Bug", "Task"})
}

// Load reads the configuration.
// If path is non-empty, it names the config file explicitly; otherwise a file
// called "config" (in any format viper understands) is looked up in the usual
// places. Values from the environment and from any flags in flags override
// the file.
// Returns a boolean indicating whether or not a config file was loaded.
func Load(path string, flags *pflag.FlagSet) (*Config, bool, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("password", envPrefix+"_PASSWORD", PasswordEnv); err != nil {
		return nil, false, errors.WithStack(err)
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, false, err
		}
	}

	loaded, err := readFile(v, path)
	if err != nil {
		return nil, false, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, loaded, errors.Wrap(err, "failed to read adoexport configs")
	}
	if cfg.Author == "" {
		cfg.Author = cfg.Username
	}
	if cfg.WorkItems.AssignedTo == "" {
		cfg.WorkItems.AssignedTo = cfg.Username
	}
	return &cfg, loaded, nil
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"output":       "outputdir",
	"organization": "organization",
	"project":      "project",
	"username":     "username",
	"from":         "fromdate",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.WrapIff(err, "failed to bind flag %q", name)
		}
	}
	return nil
}

func readFile(v *viper.Viper, path string) (bool, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return false, errors.WrapIff(err, "failed to read config file %q", path)
		}
		return true, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(xdg.ConfigHome, "adoexport"))
	v.AddConfigPath("$HOME/.adoexport")
	v.AddConfigPath("$ADOEXPORT_HOME")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Validate checks that every value the export cannot run without is set.
func (c *Config) Validate() error {
	for _, req := range []struct{ key, value string }{
		{"baseurl", c.BaseURL},
		{"organization", c.Organization},
		{"project", c.Project},
		{"username", c.Username},
		{"password (" + PasswordEnv + ")", c.Password},
		{"outputdir", c.OutputDir},
	} {
		if req.value == "" {
			return errors.Errorf("missing required configuration value: %s", req.key)
		}
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batchsize must be positive, got %d", c.BatchSize)
	}
	if c.CommitTop <= 0 {
		return errors.Errorf("committop must be positive, got %d", c.CommitTop)
	}
	return nil
}

// APIBaseURL returns the project-scoped REST root, e.g.
// https://dev.azure.com/org/project/_apis/.
func (c *Config) APIBaseURL() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + c.Organization + "/" + c.Project + "/_apis/"
}

func (c *Config) CommitsPath() string {
	return c.underOutput(c.CommitsDir)
}

func (c *Config) WorkItemsPath() string {
	return c.underOutput(c.WorkItemsFile)
}

func (c *Config) LedgerPath() string {
	return filepath.Join(c.OutputDir, ".adoexport-ledger.json")
}

func (c *Config) underOutput(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.OutputDir, p)
}

// Redacted returns a copy of the config that is safe to print.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "<redacted>"
	}
	return c
}
