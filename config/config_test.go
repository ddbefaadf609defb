// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/z5labs/lambdawrap/config/key"

	"github.com/stretchr/testify/assert"
)

type handlerConfig struct {
	Handler struct {
		BasePath     string `config:"basePath"`
		SetRequestID bool   `config:"setRequestId"`
	} `config:"handler"`
	Server struct {
		Compression         bool `config:"compression"`
		CompressionMinBytes int  `config:"compressionMinBytes"`
	} `config:"server"`
	Logging struct {
		Level slog.Level `config:"level"`
	} `config:"logging"`
	Timeout time.Duration `config:"timeout"`
}

func TestRead(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a source fails to apply", func(t *testing.T) {
			srcErr := errors.New("failed")
			_, err := Read(SourceFunc(func(Store) error {
				return srcErr
			}))
			if !assert.ErrorIs(t, err, srcErr) {
				return
			}
		})

		t.Run("if the yaml is invalid", func(t *testing.T) {
			_, err := Read(FromYaml(strings.NewReader("handler: [")))

			var yerr InvalidYamlError
			if !assert.ErrorAs(t, err, &yerr) {
				return
			}
		})

		t.Run("if the json is invalid", func(t *testing.T) {
			_, err := Read(FromJson(strings.NewReader(`{"handler":`)))

			var jerr InvalidJsonError
			if !assert.ErrorAs(t, err, &jerr) {
				return
			}
		})

		t.Run("if a later source nests a key under a plain value", func(t *testing.T) {
			_, err := Read(
				Map{"handler": "plain"},
				Map{"handler": map[string]any{"basePath": "/v1"}},
			)

			var kerr UnexpectedKeyValueTypeError
			if !assert.ErrorAs(t, err, &kerr) {
				return
			}
			if !assert.Equal(t, "handler", kerr.Key) {
				return
			}
		})
	})

	t.Run("will let later sources win", func(t *testing.T) {
		m, err := Read(
			FromYaml(strings.NewReader("handler:\n  basePath: /yaml\n  setRequestId: true\n")),
			FromJson(strings.NewReader(`{"handler":{"basePath":"/json"}}`)),
			Map{"server": map[string]any{"compression": false}},
		)
		if !assert.Nil(t, err) {
			return
		}

		var cfg handlerConfig
		err = m.Unmarshal(&cfg)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "/json", cfg.Handler.BasePath) {
			return
		}
		if !assert.True(t, cfg.Handler.SetRequestID) {
			return
		}
		if !assert.False(t, cfg.Server.Compression) {
			return
		}
	})
}

func TestManager_Unmarshal(t *testing.T) {
	t.Run("will decode text unmarshalers and durations", func(t *testing.T) {
		m, err := Read(Map{
			"logging": map[string]any{"level": "DEBUG"},
			"timeout": "3s",
		})
		if !assert.Nil(t, err) {
			return
		}

		var cfg handlerConfig
		err = m.Unmarshal(&cfg)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, slog.LevelDebug, cfg.Logging.Level) {
			return
		}
		if !assert.Equal(t, 3*time.Second, cfg.Timeout) {
			return
		}
	})

	t.Run("will return a type coercion error", func(t *testing.T) {
		t.Run("if a duration cannot be parsed", func(t *testing.T) {
			m, err := Read(Map{"timeout": "soon"})
			if !assert.Nil(t, err) {
				return
			}

			var cfg handlerConfig
			err = m.Unmarshal(&cfg)

			if !assert.Error(t, err) {
				return
			}
			if !assert.Contains(t, err.Error(), "failed to coerce value") {
				return
			}
		})
	})
}

func TestEnv_Apply(t *testing.T) {
	t.Run("will set flat keys", func(t *testing.T) {
		t.Run("if no prefix is configured", func(t *testing.T) {
			m, err := Read(FromEnv(Environ(func() []string {
				return []string{"HOME=/root", "invalid"}
			})))
			if !assert.Nil(t, err) {
				return
			}

			v, ok := m.Lookup("HOME")
			if !assert.True(t, ok) {
				return
			}
			if !assert.Equal(t, "/root", v) {
				return
			}
		})
	})

	t.Run("will nest prefixed variables", func(t *testing.T) {
		m, err := Read(FromEnv(
			EnvPrefix("LAMBDAWRAP"),
			Environ(func() []string {
				return []string{
					"LAMBDAWRAP_HANDLER_BASEPATH=/v1",
					"LAMBDAWRAP_HANDLER_SETREQUESTID=false",
					"LAMBDAWRAP_SERVER_COMPRESSIONMINBYTES=2048",
					"OTHER_HANDLER_BASEPATH=/ignored",
				}
			}),
		))
		if !assert.Nil(t, err) {
			return
		}

		_, ok := m.Lookup("other")
		if !assert.False(t, ok) {
			return
		}

		var cfg handlerConfig
		cfg.Handler.SetRequestID = true
		err = m.Unmarshal(&cfg)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "/v1", cfg.Handler.BasePath) {
			return
		}
		if !assert.False(t, cfg.Handler.SetRequestID) {
			return
		}
		if !assert.Equal(t, 2048, cfg.Server.CompressionMinBytes) {
			return
		}
	})
}

func TestMap_Set(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the key chain is empty", func(t *testing.T) {
			err := make(Map).Set(key.Chain{}, 1)

			var kerr EmptyKeyChainError
			if !assert.ErrorAs(t, err, &kerr) {
				return
			}
		})
	})

	t.Run("will create intermediate maps", func(t *testing.T) {
		m := make(Map)
		err := m.Set(key.Parse("otel.exporter"), "stdout")
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"otel": map[string]any{"exporter": "stdout"}}, m) {
			return
		}
	})
}
