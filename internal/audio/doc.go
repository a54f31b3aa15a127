// Package audio handles PCM frame accumulation and sample rate conversion.
// It coalesces variable-sized inbound chunks into fixed 100ms frames and
// converts them to the fixed output rate via sample repetition or a generic
// per-call resampler.
package audio
