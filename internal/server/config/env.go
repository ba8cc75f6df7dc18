package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv loads a dotenv file (path from -env, ".env" by default) into the
// process environment and then overlays every Config field whose variable
// is set. Variables already present in the environment win over the file.
// A missing default file is ignored; any other failure panics, matching
// the JSON and flag layers.
func parseEnv(config *Config) {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
