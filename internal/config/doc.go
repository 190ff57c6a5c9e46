// Package config loads, normalizes, and validates pressline configuration.
//
// Configuration lives in TOML. The file is the --config flag, else
// $PRESSLINE_CONFIG, else ~/.config/pressline/config.toml, else a
// project-local pressline.toml. Load decodes over repository defaults, rejects
// unknown keys, expands ~ in paths, reads environment fallbacks for secrets,
// and validates every section before returning. CreateSample writes the
// embedded sample file used by `pressline config init`.
package config
