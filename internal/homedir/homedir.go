// Package homedir resolves the cache root this system persists installed
// package information and registry caches under, the way golang-dep's
// context.go resolves GOPATH: check an override environment variable
// first, then fall back to a platform-appropriate default.
package homedir

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// EnvVar is the environment variable that, if set, overrides the default
// cache root entirely.
const EnvVar = "ELM_HOME"

// Resolve returns the cache root: the value of EnvVar if set and
// non-empty, otherwise "<user home>/.elm" on POSIX or
// "<user data dir>/elm" on Windows.
func Resolve() (string, error) {
	if v := os.Getenv(EnvVar); v != "" {
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving cache root: could not determine user home directory")
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "elm"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "elm"), nil
	}
	return filepath.Join(home, ".elm"), nil
}
