// Package config handles loading and validating tsbuffer configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (TSBUFFER_*)
//   - Validation of required fields per transport backend
//   - Default value handling
//
// Security Considerations:
//   - The target token should be set via TSBUFFER_TARGET_TOKEN, not the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/tsbuffer.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Target.URL)
package config
