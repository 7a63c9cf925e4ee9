// Package config loads the taskdesk configuration from YAML or JSON files,
// filling defaults and resolving relative paths against the file's directory.
package config
