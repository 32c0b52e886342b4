// Package extract pulls email addresses out of arbitrary CSV text and gates
// them with a stricter address check before sending.
//
// Extraction is deliberately permissive: every cell of every row is scanned
// for email-shaped substrings, which are lowercased and deduplicated in
// first-seen order. Validate is the gate applied to the final list.
package extract
