// Package asr implements the client side of the streaming speech
// recognition protocol. It signs short-lived connection URLs, drives one
// WebSocket recognition attempt with concurrent paced sending and result
// accumulation under a session deadline, and resolves each attempt to a
// final transcript, an error, or a timeout.
package asr
