package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/llm"
)

var _ = Describe("Event", func() {
	It("marshals TurnCompletedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.NewTurnCompletedEvent(
			eventstream.EventSource{Service: "proxy", Path: "/v1/generate-prompt", Model: "gemma3:latest"},
			eventstream.TurnMeta{State: "completed", Deltas: 3, DurationMs: 2000},
			conversation.Record{
				ID:        "conv-1",
				Title:     "hello",
				Messages:  []llm.Message{llm.NewTextMessage(llm.RoleUser, "hello")},
				CreatedAt: now,
				UpdatedAt: now,
			},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("turn"))
		Expect(got).To(HaveKey("conversation"))
	})

	It("stamps a unique id and the schema version", func() {
		a := eventstream.NewTurnCompletedEvent(eventstream.EventSource{}, eventstream.TurnMeta{}, conversation.Record{})
		b := eventstream.NewTurnCompletedEvent(eventstream.EventSource{}, eventstream.TurnMeta{}, conversation.Record{})

		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(strings.HasPrefix(a.EventID, "evt_")).To(BeTrue())
		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(a.EventType).To(Equal("promptsmith.turn.completed"))
		Expect(a.EmittedAt).To(BeTemporally("~", time.Now(), time.Second))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
