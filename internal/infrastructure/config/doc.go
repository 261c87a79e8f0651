// Package config handles loading and validating depthcam configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (DEPTHCAM_SECTION_KEY)
//   - Validation of required fields, including startup source kinds
//   - Hot reload of the file through Watch
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID)
package config
