// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the dixel command line.
//
// Running dixel with no arguments opens the chat screen (or the plain
// line-based REPL when stdin is not a terminal). The subcommands expose
// the same operations one at a time:
//
//	dixel login | signup | logout | whoami
//	dixel conversations list | new | delete | show
//	dixel ask "Quel objectif pour un portrait ?"
//	dixel export | search | stats
//	dixel health [--watch]
//	dixel config show | path | init
//
// Every command builds an app.App from the loaded configuration, calls
// Init and defers Teardown. Errors are returned from RunE and turned into
// exit codes by Execute.
package cli
