// Package config loads and validates the YAML document that declares an
// agent: metadata and defaults, the state shape, prompts, tools, memory, and
// the node/edge graphs. The engine consumes the compiled form, not this
// package's types.
package config
