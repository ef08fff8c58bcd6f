// Package embedded provides assets compiled into the binary.
package embedded

import (
	"embed"
	"fmt"
)

// Files contains every embedded asset:
//   - schemas/ - SQL schema applied by database.Migrate
//
//go:embed schemas
var Files embed.FS

// Schema returns the contents of schemas/<name>
func Schema(name string) (string, error) {
	content, err := Files.ReadFile("schemas/" + name)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded schema %s: %w", name, err)
	}
	return string(content), nil
}
