// Package provider adapts the gateway's two tasks (chat and AI-content
// detection) to the wire contracts of the supported LLM backends: a local
// model server, OpenAI-style hosted chat and detection endpoints, and Gemini.
//
// Each backend gets a request builder and an envelope extractor. Detection
// answers arrive as JSON encoded inside a string field of the envelope and
// are decoded in a second, separately checked stage.
package provider
