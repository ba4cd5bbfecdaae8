// Package config reads run parameters from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bare -config names are looked up in DefaultDir.
const (
	DefaultDir  = "conf"
	DefaultFile = "emeans.yaml"
)

var ErrConfig = errors.New("invalid configuration")

type Results struct {
	Fitness   string `yaml:"fitness"`
	Centroids string `yaml:"centroids"`
	Clusters  string `yaml:"clusters"`
	Database  string `yaml:"database"`
	Report    string `yaml:"report"`
}

type Config struct {
	Clusters       int     `yaml:"clusters"`
	Trials         int     `yaml:"trials"`
	Population     int     `yaml:"population"`
	Mutation       float64 `yaml:"mutation"`
	Crossover      float64 `yaml:"crossover"`
	MaxGenerations int     `yaml:"max_generations"`
	MaxIterations  int     `yaml:"max_iterations"`
	Rows           int     `yaml:"rows"`
	Cols           int     `yaml:"cols"`
	DataFile       string  `yaml:"data_file"`
	Seed           uint64  `yaml:"seed"`
	Parallelism    int     `yaml:"parallelism"`
	Degenerate     string  `yaml:"degenerate"`
	CacheDir       string  `yaml:"cache_dir"`
	Results        Results `yaml:"results"`
}

// Default returns the values used for keys a file leaves out.
func Default() Config {
	return Config{
		Trials:        50,
		Mutation:      0.01,
		Crossover:     0.70,
		MaxIterations: 10000,
		Parallelism:   1,
		Degenerate:    "abort",
	}
}

// Resolve maps a -config argument to a file path. A bare name is looked up
// in DefaultDir; an empty name selects DefaultFile.
func Resolve(name string) string {
	if name == "" {
		name = DefaultFile
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") {
		return name
	}
	return filepath.Join(DefaultDir, name)
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML over Default and validates the result. Unknown keys
// are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Clusters >= 1, "clusters must be at least 1, got %d", c.Clusters)
	check(c.Trials >= 1, "trials must be at least 1, got %d", c.Trials)
	check(c.Population >= 2 && c.Population%2 == 0, "population must be even and at least 2, got %d", c.Population)
	check(c.Mutation >= 0 && c.Mutation <= 1, "mutation must be within [0,1], got %v", c.Mutation)
	check(c.Crossover >= 0 && c.Crossover <= 1, "crossover must be within [0,1], got %v", c.Crossover)
	check(c.MaxGenerations >= 1, "max_generations must be at least 1, got %d", c.MaxGenerations)
	check(c.MaxIterations >= 1, "max_iterations must be at least 1, got %d", c.MaxIterations)
	check(c.Rows >= 1, "rows must be at least 1, got %d", c.Rows)
	check(c.Cols >= 1, "cols must be at least 1, got %d", c.Cols)
	check(c.Clusters <= c.Rows, "clusters (%d) exceeds rows (%d)", c.Clusters, c.Rows)
	check(c.DataFile != "", "data_file is required")
	check(c.Parallelism >= 1, "parallelism must be at least 1, got %d", c.Parallelism)
	check(c.Degenerate == "abort" || c.Degenerate == "zero", "degenerate must be abort or zero, got %q", c.Degenerate)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
}
