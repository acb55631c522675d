// Package librarian holds build metadata for the librarian tool.
package librarian

// Version is the release version of the librarian binary.
const Version = "0.1.0"
