package mocksetup

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fboranek/mocksetup/pkg/project"
)

// Config configures the action. Zero fields take the defaults from
// DefaultConfig.
type Config struct {
	// Interpreter runs pip, the import probe and the fixture.
	Interpreter string `yaml:"interpreter"`

	// Packages are installed with pip.
	Packages []string `yaml:"packages"`

	// ProbeModules are imported to verify the install. Defaults to Packages.
	ProbeModules []string `yaml:"probe_modules"`

	// ConfigKey is the project config list the flag is appended to.
	ConfigKey string `yaml:"config_key"`

	// Flag enables the dependent test suite.
	Flag string `yaml:"flag"`

	// FixtureDir contains the fixture script, relative to the source root
	// (Env.BaseDir).
	FixtureDir string `yaml:"fixture_dir"`

	// FixtureScript is the script file name inside FixtureDir.
	FixtureScript string `yaml:"fixture_script"`

	// ReadyAddr, when set, is dialed until the fixture accepts connections.
	ReadyAddr string `yaml:"ready_addr"`

	// ReadyTimeout bounds the readiness wait.
	ReadyTimeout time.Duration `yaml:"ready_timeout"`

	// KillGrace is the time between terminate and kill on cleanup.
	KillGrace time.Duration `yaml:"kill_grace"`

	// Advertise publishes the fixture over mDNS. Requires ReadyAddr.
	Advertise bool `yaml:"advertise"`

	// Watch restarts the fixture when the script changes.
	Watch bool `yaml:"watch"`
}

// Defaults.
const (
	DefaultInterpreter   = "python3"
	DefaultFlag          = "-DENABLE_MOCK_SERVER_TESTS=ON"
	DefaultFixtureDir    = "tests/mock_s3_server"
	DefaultFixtureScript = "mock_s3_server.py"
	DefaultReadyTimeout  = 10 * time.Second
	DefaultKillGrace     = 5 * time.Second
)

// DefaultPackages are the fixture's runtime dependencies.
var DefaultPackages = []string{"h11", "trio"}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Interpreter == "" {
		c.Interpreter = DefaultInterpreter
	}
	if len(c.Packages) == 0 {
		c.Packages = append([]string(nil), DefaultPackages...)
	}
	if len(c.ProbeModules) == 0 {
		c.ProbeModules = append([]string(nil), c.Packages...)
	}
	if c.ConfigKey == "" {
		c.ConfigKey = project.KeyCMakeArgs
	}
	if c.Flag == "" {
		c.Flag = DefaultFlag
	}
	if c.FixtureDir == "" {
		c.FixtureDir = DefaultFixtureDir
	}
	if c.FixtureScript == "" {
		c.FixtureScript = DefaultFixtureScript
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.KillGrace == 0 {
		c.KillGrace = DefaultKillGrace
	}
}

// Validate checks a configuration with defaults applied.
func (c *Config) Validate() error {
	for _, m := range c.ProbeModules {
		if m == "" || strings.ContainsAny(m, " ,;\n") {
			return &ConfigError{Field: "probe_modules", Message: "invalid module name " + strconv.Quote(m)}
		}
	}
	if strings.ContainsAny(c.FixtureScript, `/\`) {
		return &ConfigError{Field: "fixture_script", Message: "must be a file name inside fixture_dir"}
	}
	if c.ReadyTimeout < 0 {
		return &ConfigError{Field: "ready_timeout", Message: "must not be negative"}
	}
	if c.KillGrace < 0 {
		return &ConfigError{Field: "kill_grace", Message: "must not be negative"}
	}
	if c.ReadyAddr != "" {
		if _, err := c.readyPort(); err != nil {
			return &ConfigError{Field: "ready_addr", Message: "invalid address", Cause: err}
		}
	}
	if c.Advertise && c.ReadyAddr == "" {
		return &ConfigError{Field: "advertise", Message: "requires ready_addr"}
	}
	return nil
}

func (c *Config) readyPort() (int, error) {
	_, portStr, err := net.SplitHostPort(c.ReadyAddr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

// ProbeScript returns the interpreter code that imports every probe module.
func (c *Config) ProbeScript() string {
	return "import " + strings.Join(c.ProbeModules, ", ")
}

// ParseConfig decodes YAML config data. Empty data yields the defaults.
func ParseConfig(data []byte) (*Config, error) {
	var c Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, &ConfigError{Message: "parse failed", Cause: err}
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{File: path, Message: "read failed", Cause: err}
	}
	c, err := ParseConfig(data)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.File = path
		}
		return nil, err
	}
	return c, nil
}
