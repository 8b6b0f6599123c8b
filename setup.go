package main

import (
	"flag"

	"pagespeed_monitor/internal/app"
)

type options struct {
	configPath string
	once       bool
	serve      bool
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", app.GetEnvWithDefault("CONFIG_PATH", "config.yaml"), "Path to configuration file (YAML, optional)")
	flag.BoolVar(&opts.once, "once", false, "Run a single extraction and exit")
	flag.BoolVar(&opts.serve, "serve", false, "Enable the HTTP trigger API regardless of config")
	flag.Parse()
	return opts
}
