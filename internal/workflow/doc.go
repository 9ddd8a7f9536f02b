// Package workflow runs a generation pass over a ROM directory.
//
// A Runner prepares the output directory, generates one metadata record per
// ROM with the metadata generator, releases that generator, and then
// optionally renders cover art before writing the game list. Text failures
// skip a single ROM. Image failures abort the run unless they are isolated.
// Every run produces a Report, including runs that end in an error.
package workflow
