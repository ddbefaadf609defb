// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"embed"
	"log/slog"
	"os"

	"github.com/z5labs/lambdawrap"
	"github.com/z5labs/lambdawrap/cli"
	"github.com/z5labs/lambdawrap/config"
	"github.com/z5labs/lambdawrap/example/orders/service"
)

//go:embed config.yaml
var configDir embed.FS

func main() {
	err := cli.Execute(
		cli.BuilderFunc[service.Config](service.Init),
		cli.Name("orders"),
		cli.ConfigSource(config.FromYaml(
			config.RenderTextTemplate(config.NewFileReader(configDir, "config.yaml")),
		)),
		cli.HandlerOptions(lambdawrap.ModifyRequest(service.AuthorizerCredentials)),
	)
	if err != nil {
		slog.Default().Error("failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
