// Package config loads the server configuration with Viper.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, SSS_* environment variables (dots become underscores, so
// server.data_port is SSS_SERVER_DATA_PORT), and bound command-line flags.
package config
