// Package forms implements the multi-page dynamic form engine: grouping a
// template's questions into pages, per-page required-field validation,
// wizard-style navigation, and template authoring checks.
//
// The package does no I/O. Callers load templates and persist submissions.
package forms
