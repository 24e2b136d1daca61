// Package events defines the streaming event protocol and translates a
// model's chunk stream into it.
//
// A successful turn produces, in order:
//
//	thread/started
//	turn/started
//	item/started    (user prompt)
//	item/completed  (user prompt, with the prompt text)
//	item/started    (enhancement)
//	item/agent_message/delta  (one per non-empty fragment)
//	item/completed  (enhancement, with the concatenated text)
//	turn/completed
//	[DONE]
//
// A failure while chunks are being read replaces everything after the last
// emitted event with turn/error followed by [DONE].
package events
