/*
Package config loads the configuration of buffer manager, lock table and transaction manager.

The configuration file is YAML. Durations are written as Go duration strings ("10s", "250ms"),
and the pool can be sized either with the number of buffers (pool_size)
or with the memory it may use (pool_memory, like "64KiB"), which is converted into buffers.
*/
package config

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/storage/page"
)

const (
	// DefaultMaxWait is how long Pin/SLock/XLock wait at most, measured from the original call
	DefaultMaxWait = 10 * time.Second
	// DefaultPoolSize is the number of buffers in buffer pool
	DefaultPoolSize = 8
	// DefaultBGWriterMaxPages is the max number of pages which background writer flushes in one round
	DefaultBGWriterMaxPages = 100
	// DefaultMaxRetries is how many times the transaction killed by wait-die is restarted
	DefaultMaxRetries = 5
	// DefaultRetryBase is the base delay of exponential backoff between the restarts
	DefaultRetryBase = 10 * time.Millisecond
)

// Duration is time.Duration which is written as string in YAML
type Duration time.Duration

// UnmarshalYAML parses duration string
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return errors.Wrap(err, "node.Decode failed")
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

// Duration returns time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalYAML writes duration as string
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the whole configuration
type Config struct {
	DataDir string `yaml:"data_dir"`
	Buffer  Buffer `yaml:"buffer"`
	Lock    Lock   `yaml:"lock"`
	Txn     Txn    `yaml:"txn"`
	Log     Log    `yaml:"log"`
}

// Buffer is buffer manager configuration
type Buffer struct {
	PoolSize int `yaml:"pool_size"`
	// PoolMemory overrides PoolSize when it is set
	PoolMemory       string   `yaml:"pool_memory"`
	MaxWait          Duration `yaml:"max_wait"`
	BGWriterDelay    Duration `yaml:"bgwriter_delay"`
	BGWriterMaxPages int      `yaml:"bgwriter_max_pages"`
}

// Lock is lock table configuration
type Lock struct {
	MaxWait Duration `yaml:"max_wait"`
}

// Txn is transaction manager configuration
type Txn struct {
	MaxRetries int      `yaml:"max_retries"`
	RetryBase  Duration `yaml:"retry_base"`
}

// Log is logger configuration
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		DataDir: "data",
		Buffer: Buffer{
			PoolSize:         DefaultPoolSize,
			MaxWait:          Duration(DefaultMaxWait),
			BGWriterMaxPages: DefaultBGWriterMaxPages,
		},
		Lock: Lock{
			MaxWait: Duration(DefaultMaxWait),
		},
		Txn: Txn{
			MaxRetries: DefaultMaxRetries,
			RetryBase:  Duration(DefaultRetryBase),
		},
		Log: Log{
			Level:  string(logging.LevelInfo),
			Format: "text",
		},
	}
}

// Load reads YAML file on fs. the fields which the file doesn't have keep default values.
func Load(fs afero.Fs, path string) (*Config, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "afero.ReadFile failed")
	}
	return Parse(b)
}

// Parse parses YAML bytes over default configuration
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal failed")
	}
	if cfg.Buffer.PoolMemory != "" {
		n, err := PoolSizeFromMemory(cfg.Buffer.PoolMemory)
		if err != nil {
			return nil, errors.Wrap(err, "PoolSizeFromMemory failed")
		}
		cfg.Buffer.PoolSize = n
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PoolSizeFromMemory converts humanized bytes into the number of buffers
func PoolSizeFromMemory(mem string) (int, error) {
	b, err := humanize.ParseBytes(mem)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid pool memory %q", mem)
	}
	return int(b / page.PageSize), nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Buffer.PoolSize <= 0 {
		return errors.Errorf("buffer pool size must be positive: %d", c.Buffer.PoolSize)
	}
	if c.Buffer.MaxWait < 0 || c.Lock.MaxWait < 0 || c.Buffer.BGWriterDelay < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Buffer.BGWriterDelay > 0 && c.Buffer.BGWriterMaxPages <= 0 {
		return errors.Errorf("bgwriter max pages must be positive: %d", c.Buffer.BGWriterMaxPages)
	}
	if c.Txn.MaxRetries < 0 {
		return errors.Errorf("max retries must not be negative: %d", c.Txn.MaxRetries)
	}
	if c.DataDir == "" {
		return errors.New("data dir must be specified")
	}
	return nil
}

// PoolMemory returns humanized memory size of the buffer pool
func (c *Config) PoolMemory() string {
	return humanize.IBytes(uint64(c.Buffer.PoolSize) * page.PageSize)
}

// LoggingConfig converts to logging.Config
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      logging.Level(c.Log.Level),
		Format:     c.Log.Format,
		OutputPath: c.Log.Output,
	}
}
