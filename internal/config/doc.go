// Package config loads, normalizes, and validates romscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, honours environment fallbacks such as
// SD_WEBUI_URL and HORDE_API_KEY, and merges command-line overrides. Custom
// metadata schemas are compiled here so a broken schema fails before any
// model is loaded.
package config
