/*
Package dsl builds agent definitions programmatically with a fluent API,
producing the same validated document that loading YAML would. This is
useful for dynamic graph generation, tests, and hosts that prefer
type-checked Go over configuration files.

	b := dsl.New("research-agent")
	b.LLM("gpt-4o-mini").Shape("query", "str").Shape("answer", "str")
	b.Prompt("answer").System("Be terse.").User("{{ .query }}")

	g := b.Graph()
	g.Inputs("query").Outputs("answer")
	g.Add("respond").LLM("answer").Set("answer", "{{ .result.text }}")

	doc, err := b.Build()
	// doc feeds loom.NewFromDocument.
*/
package dsl
