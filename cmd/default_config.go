package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/inference-sim/collision-risk/risk"
	"github.com/sirupsen/logrus"
)

// loadDefaultsConfig reads the pipeline configuration from path. A missing
// file at the default location falls back to risk.DefaultConfig; an explicit
// path must exist. Unknown keys are rejected.
func loadDefaultsConfig(path string, explicit bool) (risk.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		logrus.Infof("No %s found, using built-in defaults", path)
		return risk.DefaultConfig(), nil
	}
	cfg, err := risk.LoadConfig(path)
	if err != nil {
		return risk.Config{}, err
	}
	logrus.Infof("Loaded configuration from %s", path)
	return cfg, nil
}
