// Package llm sends capture payloads to an external classification service.
//
// Text goes straight to a chat model. Audio is transcribed first and the
// transcript is classified as text. Images are sent inline with a fixed
// instruction. Every path converges on the raw JSON the model returned;
// interpreting it is the job of package analysis.
//
// Supported providers are OpenAI, Anthropic and Gemini. Transcription can
// come from OpenAI Whisper, Gemini or Google Cloud Speech-to-Text.
//
// A Classifier makes exactly one attempt per call. It throttles outgoing
// requests with a token bucket but never retries a failed one.
package llm
