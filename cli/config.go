// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cli

import (
	"log/slog"

	"github.com/z5labs/lambdawrap/config"
	"github.com/z5labs/lambdawrap/pkg/otelconfig"
)

// Config holds the settings every command understands. Custom config types
// embed it with the `config:",squash"` tag.
type Config struct {
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

	OTel otelconfig.Config `config:"otel"`
}

// CLIConfig implements the [Configurer] interface.
func (c Config) CLIConfig() Config {
	return c
}

// Configurer is implemented by any type embedding [Config].
type Configurer interface {
	CLIConfig() Config
}

// Keys lists every config key which may be overridden by a flag or
// a LAMBDAWRAP_ prefixed environment variable.
var Keys = []string{
	"handler.basePath",
	"handler.setRequestId",
	"server.compression",
	"server.compressionMinBytes",
	"logging.level",
	"otel.exporter",
	"otel.target",
	"otel.serviceName",
}

func defaults() config.Map {
	return config.Map{
		"handler": map[string]any{
			"basePath":     "",
			"setRequestId": true,
		},
		"server": map[string]any{
			"compression":         false,
			"compressionMinBytes": 1024,
		},
		"logging": map[string]any{
			"level": "INFO",
		},
		"otel": map[string]any{
			"exporter": "none",
		},
	}
}
