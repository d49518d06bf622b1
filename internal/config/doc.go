// Package config provides configuration parsing for the debounce CLI.
//
// The configuration is stored in debounce.json, debounce.yaml or
// debounce.yml in the working directory. This package handles loading,
// saving, and validating configuration.
//
// # Configuration File Structure
//
//	name: search
//	delay: 300ms
//	queue_size: 256
//	log_level: info
//	metrics:
//	  enabled: true
//	  namespace: debounce
//	watch:
//	  ignore: [".git", "*.swp"]
//
// A delay may also be given as a bare number of milliseconds. The
// DEBOUNCE_DELAY environment variable overrides the file.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Delay:", cfg.Delay)
package config
