// Package llm wraps the OpenAI API for the content steps.
//
// The client covers four endpoints:
//   - Chat completions, plain text (Complete) or JSON-schema constrained
//     (CompleteStructured, schemas reflected with invopop/jsonschema).
//   - Speech synthesis with sentence-boundary chunking (SynthesizeToFile).
//   - Image generation returning decoded PNG bytes (GenerateImage).
//   - Transcription with segment timestamps (Transcribe).
//
// # Retry Behaviour
//
// The SDK's built-in retries are disabled. Every call runs under a
// services.RetryPolicy that retries HTTP 408/429/5xx, empty completions and
// network timeouts with exponential backoff, honouring Retry-After. Exhaustion
// surfaces as services.ErrRetriesExhausted; credential failures map to
// services.ErrConfiguration and rejected requests to services.ErrValidation.
//
// DecodeLLMJSON tolerates code fences and surrounding prose for the models
// that ignore response_format.
package llm
