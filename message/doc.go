// Package message defines the chat message value type that flows through
// the processing pipeline.
//
// Messages are immutable per processing step: a processor that wants to
// change one produces a replacement value via WithText or a copy, never an
// in-place mutation visible to earlier stages.
package message
