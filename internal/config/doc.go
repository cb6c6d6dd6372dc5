// Package config loads reconcile's configuration.
//
// Settings come from four layers, higher layers overriding lower ones:
//
//	┌──────────────────────────────┐
//	│  4. Command line flags       │  ← applied by the caller
//	├──────────────────────────────┤
//	│  3. RECONCILE_* environment  │
//	├──────────────────────────────┤
//	│  2. Config file (TOML/YAML)  │
//	├──────────────────────────────┤
//	│  1. Built-in defaults        │
//	└──────────────────────────────┘
//
// The file format follows the extension: .toml, or .yaml/.yml.
//
//	[document]
//	delimiters = ["\n", "\r\n"]
//	default_type = "code"
//
//	[[document.partitions]]
//	start = "/*"
//	end = "*/"
//	content_type = "comment"
//
//	[reconciler]
//	delay = "500ms"
//	script = "strategy.lua"
//
//	[log]
//	level = "debug"
//
// Load applies layers 1 to 3 and validates the result.
package config
