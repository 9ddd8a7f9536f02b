// Package outdir prepares the output directory a run writes into.
//
// Every run starts from an empty directory: Prepare deletes whatever a
// previous run left behind and recreates the tree, including media/images
// when cover art is enabled. Lock keeps two concurrent runs from deleting
// each other's output.
package outdir
