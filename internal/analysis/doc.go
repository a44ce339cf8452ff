// Package analysis asks the LLM to analyze emails, draft replies and
// summarize a mailbox.
//
// The model answers in free text that is expected to embed a JSON object.
// Extraction is a separate pure step (ExtractJSONObject, ParseAnalysis,
// ParseInsights) so it can be tested without a model. Pipeline methods return
// errors; the *OrDefault variants apply the fixed fallbacks used by the HTTP
// layer.
package analysis
