package events

import (
	"errors"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/leofalp/promptenhancer/core/retry"
	"github.com/leofalp/promptenhancer/providers/ai"
)

// NewID returns prefix + "_" + a random UUIDv4 in hex without dashes.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Translator turns the chunk sequence of one logical completion call into
// the ordered event protocol.
type Translator struct {
	newID func(prefix string) string
}

// NewTranslator returns a Translator. A nil newID uses NewID.
func NewTranslator(newID func(prefix string) string) *Translator {
	if newID == nil {
		newID = NewID
	}
	return &Translator{newID: newID}
}

// Translate returns the event sequence for prompt. Identifiers are minted
// when iteration starts. chunks is only ranged over after the five opening
// events have been accepted, and iteration stops as soon as yield returns
// false. The sequence always ends with Done unless the consumer stops early.
func (t *Translator) Translate(prompt string, chunks iter.Seq2[ai.Chunk, error]) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		threadID := t.newID("thread")
		turnID := t.newID("turn")
		promptItemID := t.newID("item")
		enhancementItemID := t.newID("item")

		opening := []Event{
			{
				Event:    KindThreadStarted,
				Type:     TypeThreadStarted,
				ThreadID: threadID,
			},
			{
				Event:    KindTurnStarted,
				Type:     TypeCreated,
				TurnID:   turnID,
				ThreadID: threadID,
				Kind:     turnKindEnhance,
			},
			{
				Event:    KindItemStarted,
				Type:     TypeItemAdded,
				TurnID:   turnID,
				ThreadID: threadID,
				ItemID:   promptItemID,
				ItemType: ItemUserPrompt,
				Item:     &Item{ID: promptItemID, Type: ItemUserPrompt},
			},
			{
				Event:    KindItemCompleted,
				Type:     TypeItemDone,
				TurnID:   turnID,
				ThreadID: threadID,
				ItemID:   promptItemID,
				ItemType: ItemUserPrompt,
				Payload:  &Payload{Text: prompt},
				Item:     &Item{ID: promptItemID, Type: ItemUserPrompt, Text: &prompt},
			},
			{
				Event:    KindItemStarted,
				Type:     TypeItemAdded,
				TurnID:   turnID,
				ThreadID: threadID,
				ItemID:   enhancementItemID,
				ItemType: ItemEnhancement,
				Item:     &Item{ID: enhancementItemID, Type: ItemEnhancement},
			},
		}
		for _, event := range opening {
			if !yield(event) {
				return
			}
		}

		var accumulated strings.Builder
		for chunk, err := range chunks {
			if err != nil {
				if yield(errorEvent(turnID, threadID, err)) {
					yield(Done())
				}
				return
			}
			if chunk.Text == "" {
				continue
			}
			accumulated.WriteString(chunk.Text)

			delta := Event{
				Event:    KindItemDelta,
				Type:     TypeTextDelta,
				TurnID:   turnID,
				ThreadID: threadID,
				ItemID:   enhancementItemID,
				ItemType: ItemAgentMessage,
				Delta:    chunk.Text,
				Choices:  []Choice{{Delta: ChoiceDelta{Content: chunk.Text}}},
			}
			if !yield(delta) {
				return
			}
		}

		final := accumulated.String()
		closing := []Event{
			{
				Event:      KindItemCompleted,
				Type:       TypeTextDone,
				TurnID:     turnID,
				ThreadID:   threadID,
				ItemID:     enhancementItemID,
				ItemType:   ItemAgentMessage,
				Payload:    &Payload{Text: final},
				Text:       &final,
				OutputText: &final,
			},
			{
				Event:    KindTurnCompleted,
				Type:     TypeCompleted,
				TurnID:   turnID,
				ThreadID: threadID,
				Response: &ResponseStatus{ID: turnID, Status: responseCompleted},
			},
			Done(),
		}
		for _, event := range closing {
			if !yield(event) {
				return
			}
		}
	}
}

func errorEvent(turnID, threadID string, err error) Event {
	code := CodeProviderError
	if errors.Is(err, retry.ErrProviderUnavailable) {
		code = CodeProviderUnavailable
	}
	message := err.Error()
	if message == "" {
		message = "stream failed"
	}
	return Event{
		Event:    KindTurnError,
		Type:     TypeTurnError,
		TurnID:   turnID,
		ThreadID: threadID,
		Error:    message,
		Code:     code,
	}
}
