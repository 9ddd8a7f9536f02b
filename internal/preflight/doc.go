// Package preflight provides readiness checks for the directories, binaries,
// and services a generation run depends on.
//
// The CLI "romscribe check" command runs RunAll and renders the results.
// Checks are gated by configuration: image backends are only probed when
// images are enabled, and only the selected metadata backend is checked.
package preflight
