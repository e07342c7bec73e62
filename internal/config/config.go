// Package config holds the configuration of the betic command.
package config

import (
	"fmt"
	"strings"

	"devt.de/krotik/common/fileutil"
)

// Known configuration keys
const (
	LibDir        = "LibDir"
	Foundation    = "Foundation"
	ParserCommand = "ParserCommand"
	LogLevel      = "LogLevel"
	ColorOutput   = "ColorOutput"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "betic.config.json"

// DefaultConfig is the default configuration.
var DefaultConfig = map[string]interface{}{
	LibDir:        "lib",
	Foundation:    "system.btc",
	ParserCommand: "betic-parser",
	LogLevel:      "Error",
	ColorOutput:   true,
}

// Config is a loaded configuration.
type Config map[string]interface{}

// Defaults returns a configuration holding only default values.
func Defaults() Config {
	c := make(Config, len(DefaultConfig))
	for k, v := range DefaultConfig {
		c[k] = v
	}
	return c
}

// Load reads the configuration file at filename. Missing settings are
// filled in from DefaultConfig; a missing file is created with the defaults.
func Load(filename string) (Config, error) {
	data, err := fileutil.LoadConfig(filename, Defaults())
	if err != nil {
		return nil, fmt.Errorf("could not load configuration %s: %v", filename, err)
	}
	return Config(data), nil
}

// LoadOptional is Load for the default file: when it does not exist the
// defaults are used and nothing is written.
func LoadOptional(filename string) (Config, error) {
	if ok, err := fileutil.PathExists(filename); err != nil || !ok {
		return Defaults(), err
	}
	return Load(filename)
}

// Str reads a config value as a string.
func (c Config) Str(key string) string {
	return fileutil.ConfStr(c, key)
}

// Bool reads a config value as a boolean.
func (c Config) Bool(key string) bool {
	return fileutil.ConfBool(c, key)
}

// Fields splits a config value on white space; used for commands with arguments.
func (c Config) Fields(key string) []string {
	return strings.Fields(c.Str(key))
}
