// Package main hosts the romscribe CLI.
//
// The root command performs a generation run: it scans a ROM directory,
// fabricates metadata for every archive, optionally renders cover art, and
// writes gamelist.xml. Subcommands cover preflight checks, inspecting a
// written game list, and configuration scaffolding.
package main
