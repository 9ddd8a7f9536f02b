// Package gamelist holds the accumulated game records and serializes them to
// the gamelist.xml document consumed by EmulationStation-style frontends.
package gamelist
