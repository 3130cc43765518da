// Package builder provides a fluent API for constructing flow definitions
// in code
//
// Embedders and tests use it to assemble the same FlowDefinition the YAML
// loader produces, without shipping a source file
package builder
