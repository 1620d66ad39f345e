// Package formspec loads answer-form templates from CUE files.
//
// Questions can carry a structured answer form. Rather than building
// forms field by field over an API, operators author them as declarative
// CUE templates, which are validated against a schema at load time and
// then instantiated onto a question through the engine. CUE gives us
// typed fields, closed enums, and defaults without hand-rolled
// validation code.
package formspec
