// Package ai defines the provider-agnostic types shared by the completion
// pipeline: the [Request] handed to a provider, the [StreamProvider]
// capability that opens a streaming call, and the [ChunkStream] of [Chunk]
// values it yields. Provider packages (see providers/ai/azure) map these
// types to their own wire format.
package ai
