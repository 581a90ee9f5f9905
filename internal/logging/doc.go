// Package logging configures structured JSON logging for nearmatch.
//
// Logs go to stderr by default. With --debug, or when serving MCP over
// stdio, they are also (or only) written to a size-rotated file under
// ~/.nearmatch/logs/. The logs command reads that file back.
package logging
