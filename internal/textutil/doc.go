// Package textutil provides filename sanitization for generated artifacts.
//
// Game names come from a language model and may contain any character, so
// every name is passed through SanitizeFileName (or LowerFileName for media
// files) before it touches the filesystem.
package textutil
