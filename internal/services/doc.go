// Package services defines shared utilities consumed by the workflow and the
// model-serving integrations beneath it.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper, so a failure carries the
//     stage and operation it came from.
//   - FailureHint, which turns a marker into the short operator hint attached
//     to error logs and the run summary.
//
// Subpackages wrap the external model servers: llm (JSON-schema chat
// completions) and llama (llama-server process lifetime).
package services
