// Package envconfig resolves the juju environment the process operates
// on, following the juju 1.x client's own lookup: the JUJU_ENV variable,
// then the current-environment file in the juju home, then the default
// entry of environments.yaml.
package envconfig

import (
	"path/filepath"
	"strings"

	"github.com/blang/vfs"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const (
	CurrentEnvironmentFile = "current-environment"
	EnvironmentsFile       = "environments.yaml"
)

type Reader interface {
	CurrentEnvironment() (string, error)
}

type fsReader struct {
	fs     vfs.Filesystem
	getenv func(key string) string
}

var _ Reader = &fsReader{}

func NewReader(fs vfs.Filesystem, getenv func(key string) string) Reader {
	return &fsReader{fs: fs, getenv: getenv}
}

// CurrentEnvironment returns the active environment name, or "" when none
// is selected (the juju CLI then applies its own default). Missing files
// are not errors; a juju home that cannot be parsed is.
func (r *fsReader) CurrentEnvironment() (string, error) {
	if env := r.getenv("JUJU_ENV"); env != "" {
		return env, nil
	}

	home := r.jujuHome()
	if raw, err := vfs.ReadFile(r.fs, filepath.Join(home, CurrentEnvironmentFile)); err == nil {
		if name := strings.TrimSpace(string(raw)); name != "" {
			return name, nil
		}
	}

	raw, err := vfs.ReadFile(r.fs, filepath.Join(home, EnvironmentsFile))
	if err != nil {
		return "", nil
	}
	doc := struct {
		Default string `yaml:"default"`
	}{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", errors.Wrap(err, "parsing "+EnvironmentsFile)
	}
	return doc.Default, nil
}

func (r *fsReader) jujuHome() string {
	if home := r.getenv("JUJU_HOME"); home != "" {
		return home
	}
	return filepath.Join(r.getenv("HOME"), ".juju")
}
