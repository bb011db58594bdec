// Domus interprets Spanish and English home-automation commands into
// structured intents and devices, with an optional language-model fallback
// for the commands the rules cannot settle.
//
// Usage:
//
//	domus serve --config /path/to/domus.yaml
//	domus interpret "enciende la luz del comedor"
//	domus devices import data/devices.json
package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

// @title       Domus API
// @version     1.0
// @description Rule-based interpretation of Spanish and English home-automation commands.
// @BasePath    /
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
