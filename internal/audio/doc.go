// Package audio provides looping sound channels driven by asynchronous commands.
//
// Each Actor owns one output stream on a private goroutine. Callers send
// Initialize, Play, Pause and SetVolume without blocking; the actor applies
// them in order. Decoding and output go through a Backend, normally the
// beep-based one returned by NewBeepBackend.
package audio
