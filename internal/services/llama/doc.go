// Package llama manages a llama.cpp llama-server process for the duration of
// a metadata pass.
//
// Server.Start launches the binary with the model, context size, and GPU
// layer count, then polls /health until the weights are loaded. Stop sends
// an interrupt and escalates to kill after a grace period, which frees the
// accelerator memory before the image pass begins. When Config.Endpoint is
// set the package only probes an existing server and never launches or stops
// anything.
package llama
