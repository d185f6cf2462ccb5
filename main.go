// =============================================================================
// ifirma client - Main Entry Point
// =============================================================================
//
// USAGE:
//   ifirma submit     - Submit invoice files from the input directory
//   ifirma retrieve   - Fetch a document rendering
//   ifirma list       - List recent documents
//   ifirma validate   - Check invoice files without sending them
//   ifirma schema     - Print the attribute schema of a document kind
//   ifirma archive    - Inspect and prune the rendering archive
//   ifirma version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : translation engine, invoice service, transport, storage
//   - pkg/       : shared file handling utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/ifirma-client/cmd"
)

func main() {
	cmd.Execute()
}
