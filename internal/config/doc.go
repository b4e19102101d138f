// Package config provides configuration management for the task orchestrator.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// TASKORCH_CONFIG_FILE, then environment variables. The result is validated
// before it is returned; an invalid configuration refuses to start.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
