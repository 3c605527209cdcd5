// Package tts converts reply text into audio through a speech
// synthesis HTTP API.
package tts
