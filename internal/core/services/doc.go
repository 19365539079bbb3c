// Package services implements the core use cases: retrieval, response
// synthesis, conversation memory, batch processing and artifact
// verification. Services depend only on domain types and ports.
package services
