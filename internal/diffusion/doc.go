// Package diffusion wraps text-to-image backends behind one Generator
// lifetime and returns raw float tensors.
//
// SDWebUI talks to a local Stable Diffusion WebUI; Horde submits jobs to the
// AI Horde cluster. Both decode the backend's PNG or WebP payload into a
// channel-major Tensor so post-processing is backend independent.
package diffusion
