// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// WatchAddress follows a plain text file holding the target address, so the
// connection can be repointed without restarting the host.
package config
