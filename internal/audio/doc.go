// Package audio handles audio decoding, validation, and signal conditioning.
// It converts raw WAV or headerless PCM input into a canonical mono 16-bit
// signal at the target sample rate, and slices that signal into fixed-size
// frames for real-time streaming.
package audio
