// Package openapi describes a layer's settings as an OpenAPI 3 document so
// external editors and form generators can render them. Each setting type
// maps to a JSON schema type; list settings become arrays of their option
// values, and path settings carry an x-layercfg-path extension naming the
// kind of path expected.
package openapi
