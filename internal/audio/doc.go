// Package audio converts synthesized speech into the canonical PCM format
// (48 kHz, stereo, 16-bit) that the renderer stream-copies into the final
// video. Normalization is idempotent: feeding canonical audio back in yields
// the same format.
package audio
