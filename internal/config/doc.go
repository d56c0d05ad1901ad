// Package config provides configuration structures and utilities for MatSight.
// It defines the remote service endpoints, processing parameters, rendering
// defaults, and report preferences, and loads them from the .matsight YAML file.
package config
