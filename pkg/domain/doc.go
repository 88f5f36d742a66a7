/*
Package domain holds the core types shared between the loom compiler, the
execution engine, and the adapters: graph definitions, node variants, the
normalized invocation envelope, and state mutation directives.

The types here are plain data. Behavior (scheduling, retries, state merging)
lives in internal/runtime; parsing and validation live in pkg/config.
*/
package domain
