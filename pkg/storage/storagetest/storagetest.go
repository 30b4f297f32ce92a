// Package storagetest holds the behaviour every storage.Driver must share.
// Driver test suites call DescribeDriver from their own specs.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

// Record builds a two message conversation record updated at the given time.
func Record(id string, updated time.Time) conversation.Record {
	return conversation.Record{
		ID:    id,
		Title: "Write a haiku about " + id,
		Model: "gemma3:latest",
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "Write a haiku about "+id),
			llm.NewTextMessage(llm.RoleAssistant, "Autumn moonlight, "+id),
		},
		CreatedAt: updated.Add(-time.Minute),
		UpdatedAt: updated,
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called before
// each spec and the returned driver is closed after it.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)
		base = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("SaveConversation and GetConversation", func() {
		It("round trips a record", func() {
			rec := Record("alpha", base)
			Expect(driver.SaveConversation(ctx, rec)).To(Succeed())

			got, err := driver.GetConversation(ctx, "alpha")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("alpha"))
			Expect(got.Title).To(Equal(rec.Title))
			Expect(got.Model).To(Equal("gemma3:latest"))
			Expect(got.Messages).To(HaveLen(2))
			Expect(got.Messages[0].Role).To(Equal(llm.RoleUser))
			Expect(got.Messages[1].GetText()).To(Equal("Autumn moonlight, alpha"))
			Expect(got.CreatedAt).To(BeTemporally("~", rec.CreatedAt, time.Millisecond))
			Expect(got.UpdatedAt).To(BeTemporally("~", rec.UpdatedAt, time.Millisecond))
		})

		It("replaces an existing record but keeps its creation time", func() {
			first := Record("alpha", base)
			Expect(driver.SaveConversation(ctx, first)).To(Succeed())

			second := Record("alpha", base.Add(time.Hour))
			second.CreatedAt = base.Add(30 * time.Minute)
			second.Messages = append(second.Messages, llm.NewTextMessage(llm.RoleUser, "Another"))
			Expect(driver.SaveConversation(ctx, second)).To(Succeed())

			got, err := driver.GetConversation(ctx, "alpha")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Messages).To(HaveLen(3))
			Expect(got.CreatedAt).To(BeTemporally("~", first.CreatedAt, time.Millisecond))
			Expect(got.UpdatedAt).To(BeTemporally("~", second.UpdatedAt, time.Millisecond))
		})

		It("returns a NotFoundError for an unknown id", func() {
			_, err := driver.GetConversation(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("rejects a record without an id", func() {
			Expect(driver.SaveConversation(ctx, conversation.Record{})).NotTo(Succeed())
		})
	})

	Describe("ListConversations", func() {
		It("returns an empty list for an empty store", func() {
			list, err := driver.ListConversations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("orders records by most recent update", func() {
			Expect(driver.SaveConversation(ctx, Record("old", base))).To(Succeed())
			Expect(driver.SaveConversation(ctx, Record("new", base.Add(2*time.Hour)))).To(Succeed())
			Expect(driver.SaveConversation(ctx, Record("mid", base.Add(time.Hour)))).To(Succeed())

			list, err := driver.ListConversations(ctx)
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, len(list))
			for i, rec := range list {
				ids[i] = rec.ID
			}
			Expect(ids).To(Equal([]string{"new", "mid", "old"}))
		})
	})

	Describe("DeleteConversation", func() {
		It("removes a stored record", func() {
			Expect(driver.SaveConversation(ctx, Record("alpha", base))).To(Succeed())
			Expect(driver.DeleteConversation(ctx, "alpha")).To(Succeed())

			_, err := driver.GetConversation(ctx, "alpha")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("returns a NotFoundError for an unknown id", func() {
			err := driver.DeleteConversation(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("restoring", func() {
		It("rebuilds a conversation from a saved snapshot", func() {
			conv := conversation.New()
			_, err := conv.Append(llm.NewTextMessage(llm.RoleUser, "Draft a product brief"))
			Expect(err).NotTo(HaveOccurred())
			conv.AppendDelta("Here is a brief.")
			conv.Seal()

			Expect(driver.SaveConversation(ctx, conv.Snapshot())).To(Succeed())

			rec, err := driver.GetConversation(ctx, conv.ID())
			Expect(err).NotTo(HaveOccurred())
			restored := conversation.Restore(*rec)
			Expect(restored.ID()).To(Equal(conv.ID()))
			Expect(restored.Title()).To(Equal("Draft a product brief"))
			Expect(restored.Len()).To(Equal(2))
		})
	})
}
