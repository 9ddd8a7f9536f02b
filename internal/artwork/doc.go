// Package artwork turns diffusion output into cover art files.
//
// Raster normalizes a float tensor into an 8-bit RGB image at the output
// size, WritePNG stores it, and Namer derives the lowercased file name that
// both the file and the game list reference share.
package artwork
