// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides very easy to use and extensible configuration management capabilities.
//
// Configuration is read from an ordered list of [Source]s into a single
// nested key value store. Later sources override earlier ones, which makes
// layering straightforward:
//
//	m, err := config.Read(
//		config.FromYaml(config.RenderTextTemplate(config.NewFileReader(os.DirFS("."), "config.yaml"))),
//		config.FromEnv(config.EnvPrefix("LAMBDAWRAP")),
//	)
//	if err != nil {
//		return err
//	}
//
//	var cfg struct {
//		Handler struct {
//			BasePath string `config:"basePath"`
//		} `config:"handler"`
//	}
//	err = m.Unmarshal(&cfg)
package config
