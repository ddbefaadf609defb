// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/z5labs/lambdawrap/config/key"
)

// EnvOption configures an [Env] source.
type EnvOption func(*Env)

// EnvPrefix restricts the source to variables starting with prefix followed by
// an underscore. The prefix is stripped and the remaining name is split on
// underscores into a lower-cased key chain, e.g. with prefix "LAMBDAWRAP"
// LAMBDAWRAP_HANDLER_BASEPATH sets handler.basepath.
func EnvPrefix(prefix string) EnvOption {
	return func(e *Env) {
		e.prefix = prefix
	}
}

// Environ overrides where environment variables are read from.
func Environ(f func() []string) EnvOption {
	return func(e *Env) {
		e.environ = f
	}
}

// Env represents a Source where its underlying values
// are extracted from environment variables.
type Env struct {
	environ func() []string
	prefix  string
}

// FromEnv returns a Source which will apply its config
// from the environment variables available to the
// current process.
func FromEnv(opts ...EnvOption) Env {
	e := Env{
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if src.prefix == "" {
			err := store.Set(key.Name(k), v)
			if err != nil {
				return err
			}
			continue
		}

		name, ok := strings.CutPrefix(k, src.prefix+"_")
		if !ok || name == "" {
			continue
		}

		var chain key.Chain
		for _, part := range strings.Split(strings.ToLower(name), "_") {
			if part == "" {
				continue
			}
			chain = append(chain, key.Name(part))
		}
		err := store.Set(chain, v)
		if err != nil {
			return err
		}
	}
	return nil
}
