// Package execgate is a network gateway that runs shell commands and
// returns their output.
package execgate

// Version is the release version reported by the CLI, the health endpoint
// and the MCP server implementation info.
const Version = "v0.1.0"
