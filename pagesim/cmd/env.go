package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

// envFlags maps the flags that may be set from the environment to their
// variable names.
var envFlags = map[string]string{
	"memory-size":      "PAGESIM_MEMORY_SIZE",
	"frame-size":       "PAGESIM_FRAME_SIZE",
	"max-process-size": "PAGESIM_MAX_PROCESS_SIZE",
	"max-processes":    "PAGESIM_MAX_PROCESSES",
	"policy":           "PAGESIM_POLICY",
	"seed":             "PAGESIM_SEED",
	"record":           "PAGESIM_RECORD",
	"parallel-ids":     "PAGESIM_PARALLEL_IDS",
}

// loadEnvFile reads a dotenv file into the environment. Variables that are
// already set win. A missing default file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if path == defaultEnvFile && errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

// applyEnvDefaults sets every flag that is not given on the command line
// from its environment variable.
func applyEnvDefaults(cmd *cobra.Command) error {
	for flag, env := range envFlags {
		if cmd.Flags().Changed(flag) {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok || value == "" {
			continue
		}

		err := cmd.Flags().Set(flag, value)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}

	return nil
}
