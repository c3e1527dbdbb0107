package provider

// SystemPrompt frames every chat request.
const SystemPrompt = "You are a professional chat advisor specialized in providing " +
	"concise and helpful advice. Respond in a friendly, conversational tone while maintaining " +
	"professionalism. Keep responses clear and focused on the user's questions."

// DetectionInstructions is sent as the system message of detection requests.
// The caller's text always travels in a separate user message.
const DetectionInstructions = `Analyze the user's text for AI generation probability.
Consider these factors:
1. Perplexity score (0-100)
2. Burstiness pattern (0-100)
3. Semantic consistency (0-100)
4. Known AI patterns

Respond ONLY with valid JSON:
{
    "probability": 0-100,
    "metrics": {
        "perplexity": number,
        "burstiness": number,
        "consistency": number
    },
    "patterns": ["pattern1", ...],
    "analysis": "string"
}`

// detectionSchema checks the decoded detection document for structural
// presence and types. Ranges are not constrained.
const detectionSchema = `{
  "type": "object",
  "required": ["probability", "metrics", "patterns", "analysis"],
  "properties": {
    "probability": {"type": "number"},
    "metrics": {
      "type": "object",
      "required": ["perplexity", "burstiness", "consistency"],
      "properties": {
        "perplexity": {"type": "number"},
        "burstiness": {"type": "number"},
        "consistency": {"type": "number"}
      }
    },
    "patterns": {"type": "array", "items": {"type": "string"}},
    "analysis": {"type": "string"}
  }
}`
