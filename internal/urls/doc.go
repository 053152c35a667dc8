// Package urls provides centralized constants for the external URLs shown
// in help text and troubleshooting hints.
//
// Usage:
//
//	import "github.com/muurk/goveectl/internal/urls"
//
//	fmt.Printf("Request a key at: %s\n", urls.DeveloperPortal)
package urls
