// Package pipeline implements the chat message processing pipeline: an
// ordered, fault-isolated chain of processors that every inbound chat/IM
// event passes through before it reaches storage, web clients, or triggers
// an automated reply.
//
// Processors are registered with an integer priority; lower runs earlier.
// Each run snapshots the registration table, so registration changes never
// affect an in-flight run. A processor may replace the current message,
// request a reply, or short-circuit the rest of the chain; a panicking
// processor is contained and the chain continues. Nothing in the pipeline
// propagates an error to the caller — failure surfaces only as a side
// effect that did not happen, recorded in the log.
package pipeline
