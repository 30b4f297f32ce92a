package conversation_test

import (
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
)

var _ = Describe("State", func() {
	var conv *conversation.State

	BeforeEach(func() {
		conv = conversation.New()
	})

	It("starts empty with an id", func() {
		Expect(conv.ID()).NotTo(BeEmpty())
		Expect(conv.Len()).To(BeZero())
		_, ok := conv.Last()
		Expect(ok).To(BeFalse())
	})

	Describe("Append", func() {
		It("appends user and assistant messages in order", func() {
			i, err := conv.Append(llm.NewTextMessage(llm.RoleUser, "Hi"))
			Expect(err).NotTo(HaveOccurred())
			Expect(i).To(Equal(0))

			i, err = conv.Append(llm.NewTextMessage(llm.RoleAssistant, "Hello"))
			Expect(err).NotTo(HaveOccurred())
			Expect(i).To(Equal(1))

			msg, ok := conv.At(1)
			Expect(ok).To(BeTrue())
			Expect(msg.GetText()).To(Equal("Hello"))
		})

		It("rejects other roles", func() {
			_, err := conv.Append(llm.NewTextMessage(llm.RoleSystem, "nope"))
			Expect(err).To(MatchError(conversation.ErrInvalidRole))
			Expect(conv.Len()).To(BeZero())
		})

		It("derives the title from the first user message", func() {
			_, _ = conv.Append(llm.NewTextMessage(llm.RoleUser, strings.Repeat("x", 80)))
			_, _ = conv.Append(llm.NewTextMessage(llm.RoleUser, "second"))
			Expect(conv.Title()).To(Equal(strings.Repeat("x", 60) + "..."))
		})

		It("stores a copy of the message", func() {
			msg := llm.NewTextMessage(llm.RoleUser, "original")
			_, _ = conv.Append(msg)
			msg.Content[0].Text = "mutated"

			got, _ := conv.At(0)
			Expect(got.GetText()).To(Equal("original"))
		})
	})

	Describe("AppendDelta", func() {
		BeforeEach(func() {
			_, _ = conv.Append(llm.NewTextMessage(llm.RoleUser, "Hi"))
		})

		It("starts a new assistant message on the first delta", func() {
			Expect(conv.AppendDelta("Hel")).To(Equal(1))
			last, _ := conv.Last()
			Expect(last.Role).To(Equal(llm.RoleAssistant))
			Expect(last.GetText()).To(Equal("Hel"))
		})

		It("concatenates onto the open assistant message", func() {
			conv.AppendDelta("Hel")
			conv.AppendDelta("lo")
			Expect(conv.Len()).To(Equal(2))
			last, _ := conv.Last()
			Expect(last.GetText()).To(Equal("Hello"))
		})

		It("starts a new message after sealing", func() {
			conv.AppendDelta("first")
			Expect(conv.Seal()).To(BeTrue())
			Expect(conv.Sealed(1)).To(BeTrue())

			Expect(conv.AppendDelta("second")).To(Equal(2))
			Expect(conv.Len()).To(Equal(3))
		})

		It("does not extend a restored assistant message", func() {
			_, _ = conv.Append(llm.NewTextMessage(llm.RoleAssistant, "done"))
			conv.AppendDelta("new")
			Expect(conv.Len()).To(Equal(3))
			msg, _ := conv.At(1)
			Expect(msg.GetText()).To(Equal("done"))
		})
	})

	Describe("Seal", func() {
		It("reports false when nothing is open", func() {
			Expect(conv.Seal()).To(BeFalse())
		})
	})

	Describe("Observe", func() {
		It("notifies every mutation with the index and a copy", func() {
			var changes []conversation.Change
			conv.Observe(func(c conversation.Change) {
				changes = append(changes, c)
			})

			_, _ = conv.Append(llm.NewTextMessage(llm.RoleUser, "Hi"))
			conv.AppendDelta("He")
			conv.AppendDelta("y")
			conv.Seal()

			Expect(changes).To(HaveLen(4))
			Expect(changes[0].Kind).To(Equal(conversation.ChangeAppend))
			Expect(changes[0].Index).To(Equal(0))
			Expect(changes[1].Kind).To(Equal(conversation.ChangeAppend))
			Expect(changes[1].Delta).To(Equal("He"))
			Expect(changes[2].Kind).To(Equal(conversation.ChangeDelta))
			Expect(changes[2].Message.GetText()).To(Equal("Hey"))
			Expect(changes[2].Delta).To(Equal("y"))
			Expect(changes[3].Kind).To(Equal(conversation.ChangeSeal))
			Expect(changes[3].Index).To(Equal(1))
		})

		It("lets observers read the state", func() {
			var seen int
			conv.Observe(func(conversation.Change) {
				seen = conv.Len()
			})
			conv.AppendDelta("x")
			Expect(seen).To(Equal(1))
		})
	})

	It("allows concurrent readers while one writer streams", func() {
		var wg sync.WaitGroup
		stop := make(chan struct{})
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						_ = conv.Messages()
					}
				}
			}()
		}

		for range 500 {
			conv.AppendDelta("a")
		}
		close(stop)
		wg.Wait()

		last, _ := conv.Last()
		Expect(last.GetText()).To(HaveLen(500))
	})

	Describe("Snapshot and Restore", func() {
		It("round-trips the record", func() {
			conv.SetModel("gemma3:latest")
			_, _ = conv.Append(llm.NewTextMessage(llm.RoleUser, "Hi"))
			conv.AppendDelta("Hello")
			conv.Seal()

			rec := conv.Snapshot()
			Expect(rec.ID).To(Equal(conv.ID()))
			Expect(rec.Title).To(Equal("Hi"))
			Expect(rec.Model).To(Equal("gemma3:latest"))
			Expect(rec.Messages).To(HaveLen(2))

			restored := conversation.Restore(rec)
			Expect(restored.ID()).To(Equal(rec.ID))
			Expect(restored.Messages()).To(Equal(rec.Messages))
			Expect(restored.Sealed(1)).To(BeTrue())
		})

		It("assigns an id and title when the record lacks them", func() {
			restored := conversation.Restore(conversation.Record{
				Messages:  []llm.Message{llm.NewTextMessage(llm.RoleUser, "Draft a prompt")},
				CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			})
			Expect(restored.ID()).NotTo(BeEmpty())
			Expect(restored.Title()).To(Equal("Draft a prompt"))
			Expect(restored.Snapshot().CreatedAt.Year()).To(Equal(2026))
		})
	})
})
