package config

import (
	_ "embed"
)

// curvewatch default config
//
//go:embed default.config.yml
var DefaultConfigYml string
