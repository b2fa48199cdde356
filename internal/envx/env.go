// Package envx reads configuration overrides from the process environment,
// after loading an optional .env file with godotenv.
package envx

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given files (default ".env") into the
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// String sets *dst to the value of key when it is set and non-empty.
func String(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Int sets *dst to the integer value of key. Unparsable values are ignored.
func Int(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}

// Duration sets *dst to the duration value of key ("90s", "5m").
// Unparsable values are ignored.
func Duration(dst *time.Duration, key string) {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		*dst = v
	}
}
