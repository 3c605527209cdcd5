// Package chat generates a spoken reply for a recognized transcript
// through an OpenAI-compatible chat completion API, with retries for
// transient failures.
package chat
