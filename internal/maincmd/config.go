package maincmd

import (
	"os"

	"gopkg.in/yaml.v3"
)

// loadConfigFile merges kscript.yaml (or the file named by --config) into
// c, for every field left at its zero value by flags/env — flags and env
// vars, parsed by mainer.Parser before Validate runs, always win over the
// file. A missing default "kscript.yaml" is not an error; a missing
// explicitly-named --config file is.
func loadConfigFile(c *Cmd) error {
	path := c.ConfigFile
	explicit := path != ""
	if path == "" {
		path = "kscript.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return err
	}

	var file struct {
		GCLog     *bool `yaml:"gc_log"`
		MaxSteps  *int  `yaml:"max_steps"`
		MaxFrames *int  `yaml:"max_frames"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	if !c.flags["gc-log"] && file.GCLog != nil {
		c.GCLog = *file.GCLog
	}
	if !c.flags["max-steps"] && file.MaxSteps != nil {
		c.MaxSteps = *file.MaxSteps
	}
	if !c.flags["max-frames"] && file.MaxFrames != nil {
		c.MaxFrames = *file.MaxFrames
	}
	return nil
}
