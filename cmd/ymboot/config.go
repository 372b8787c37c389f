package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
)

// configPath is the config file location relative to the XDG config dirs.
const configPath = "ymboot/config.json"

// fileConfig holds flag defaults read from the config file. Unset fields
// leave the built-in defaults alone.
type fileConfig struct {
	Port         string `json:"port,omitempty"`
	Baud         int    `json:"baud,omitempty"`
	Parity       string `json:"parity,omitempty"`
	Family       string `json:"family,omitempty"`
	Entry        string `json:"entry,omitempty"`
	ResetCommand string `json:"reset_command,omitempty"`
	EntryTimeout string `json:"entry_timeout,omitempty"`
	Echo         *bool  `json:"echo,omitempty"`
	Verbose      *bool  `json:"verbose,omitempty"`
}

// values maps flag names to the values set in the file.
func (c *fileConfig) values() map[string]string {
	out := map[string]string{}
	set := func(name, value string) {
		if value != "" {
			out[name] = value
		}
	}
	set("port", c.Port)
	if c.Baud != 0 {
		out["baud"] = strconv.Itoa(c.Baud)
	}
	set("parity", c.Parity)
	set("family", c.Family)
	set("entry", c.Entry)
	set("reset-command", c.ResetCommand)
	set("entry-timeout", c.EntryTimeout)
	if c.Echo != nil {
		out["echo"] = strconv.FormatBool(*c.Echo)
	}
	if c.Verbose != nil {
		out["verbose"] = strconv.FormatBool(*c.Verbose)
	}
	return out
}

// loadConfig applies the config file, if there is one, to every flag not
// given on the command line.
func loadConfig(fs *pflag.FlagSet) error {
	path, err := xdg.SearchConfigFile(configPath)
	if err != nil {
		// no config file
		return nil
	}
	return applyConfigFile(fs, path)
}

func applyConfigFile(fs *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	for name, value := range cfg.values() {
		if fs.Lookup(name) == nil || fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("config %s: %s: %w", path, name, err)
		}
	}
	return nil
}
