// Package clicheck runs external command-line programs and checks what they
// did: exit codes and captured output.
package clicheck

// Version is the clicheck release version.
const Version = "v0.3.0"
