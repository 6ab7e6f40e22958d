// Package docparse extracts text, tables and layout metadata from documents
// by delegating to external document-understanding providers, normalizes the
// provider outputs into a per-page representation and persists it as
// markdown.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., azure/, textract/, sqlite/, fs/).
package docparse
