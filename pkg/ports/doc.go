/*
Package ports defines the interfaces between the loom execution engine and
its collaborators: template rendering, predicate evaluation, tool and model
invocation, tracing, and conversation memory.

The engine depends only on these contracts. Adapters (pkg/eval,
pkg/providers, pkg/tools, pkg/adapters, pkg/trace) supply implementations.
*/
package ports
