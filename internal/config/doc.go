// Package config provides user configuration management for mdcctl.
//
// This package manages a YAML file listing named displays (host, device
// number, port), the default display, and preferences for command pacing,
// connect timeout and logging.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/mdcctl/config.yaml or $HOME/.config/mdcctl/config.yaml
//   - macOS: $HOME/.config/mdcctl/config.yaml
//   - Windows: %LOCALAPPDATA%\mdcctl\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.SetDisplay("lobby", &config.Display{
//	    Host:         "10.0.0.20",
//	    DeviceNumber: 1,
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes. Registry
// methods themselves are not synchronized.
package config
