// Package metadata fabricates game records from ROM file names.
//
// A Generator wraps one language-model backend behind an explicit
// Open/Generate/Close lifetime. Two backends exist:
//
//   - Llama runs a local llama-server and constrains decoding with the game
//     JSON schema, so the model can only emit structurally valid records.
//   - Anthropic sends the same prompt contract to the Claude messages API.
//
// Every response is checked against the schema before it becomes a
// gamelist.Game. Transport failures surface as *GenerationError and
// undecodable or non-conforming output as *ParseError; callers treat both as
// a skipped item.
package metadata
