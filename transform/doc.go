// Package transform provides ready-made bufferstream.TransformFuncs and a
// registry that builds them from short "name:arg" specs.
//
// Binary transforms (Prefix, Suffix, Upper, YAMLToJSON, Diff, Seal, ...)
// operate on the concatenated aggregate. Object transforms (PrependObject,
// AppendObject, Reverse, Expr) operate on the ordered list of values.
//
// Every transform forwards an upstream error unchanged unless wrapped with
// Recover.
//
// # Specs
//
//	steps, err := transform.ParseChain("yaml2json,prefix:[,suffix:]")
//	stages, err := transform.BuildChain("prefix:plop,prefix:plip")
package transform
