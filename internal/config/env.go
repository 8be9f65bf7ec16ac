package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

const envFileName = ".env"

// LoadEnvFile loads KEY=VALUE pairs from path (".env" when empty) into the
// environment. Variables already set win; a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = envFileName
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}
