// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for dixel.
//
// Configuration is a TOML file with sensible defaults, environment variable
// overrides, and validation.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DIXEL_*, and VITE_API_URL for the backend URL)
//   - A .env file in the working directory or ~/.dixel/.env
//   - ~/.dixel/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := api.NewClient(cfg.API.URL).WithTimeout(cfg.RequestTimeout())
package config
