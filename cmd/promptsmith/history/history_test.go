package historycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/dotdir"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/pkg/storage/inmemory"
	"github.com/papercomputeco/promptsmith/proxy"
)

func record(id, title string, updated time.Time) conversation.Record {
	return conversation.Record{
		ID:    id,
		Title: title,
		Model: "gemma3:latest",
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, title),
			llm.NewTextMessage(llm.RoleAssistant, "# Prompt\nYou are an expert."),
		},
		CreatedAt: updated.Add(-time.Minute),
		UpdatedAt: updated,
	}
}

var _ = Describe("NewHistoryCmd", func() {
	It("registers the subcommands", func() {
		cmd := NewHistoryCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("ls", "show", "checkout", "rm", "status"))
	})

	It("gives every store subcommand the store flags", func() {
		cmd := NewHistoryCmd()
		for _, name := range []string{"ls", "show", "checkout", "rm"} {
			sub, _, err := cmd.Find([]string{name})
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Flags().Lookup("sqlite")).NotTo(BeNil(), name)
			Expect(sub.Flags().Lookup("postgres")).NotTo(BeNil(), name)
		}
	})

	It("accepts at most one checkout id", func() {
		cmd, _, err := NewHistoryCmd().Find([]string{"checkout"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"a", "b"})).To(HaveOccurred())
	})
})

var _ = Describe("history subcommands", func() {
	var (
		ctx       context.Context
		driver    *inmemory.Driver
		out       *bytes.Buffer
		configDir string
		now       time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		out = &bytes.Buffer{}
		configDir = GinkgoT().TempDir()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		Expect(driver.SaveConversation(ctx, record("3f2a9c11-aaaa", "Code reviewer prompt", now.Add(-2*time.Hour)))).To(Succeed())
		Expect(driver.SaveConversation(ctx, record("3f2b0000-bbbb", "SQL tutor prompt", now.Add(-time.Hour)))).To(Succeed())
		Expect(driver.SaveConversation(ctx, record("77e1d2c3-cccc", "Travel agent prompt", now))).To(Succeed())
	})

	Describe("findConversation", func() {
		It("matches full ids and unique prefixes", func() {
			rec, err := findConversation(ctx, driver, "77e1d2c3-cccc")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Title).To(Equal("Travel agent prompt"))

			rec, err = findConversation(ctx, driver, "3f2b")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Title).To(Equal("SQL tutor prompt"))
		})

		It("rejects ambiguous prefixes", func() {
			_, err := findConversation(ctx, driver, "3f2")
			Expect(err).To(MatchError(ContainSubstring("ambiguous")))
		})

		It("reports unknown ids as not found", func() {
			_, err := findConversation(ctx, driver, "zzz")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("ls", func() {
		It("lists the most recent conversation first", func() {
			Expect(runLs(ctx, driver, lsOptions{limit: 20}, out)).To(Succeed())

			text := out.String()
			Expect(text).To(ContainSubstring("77e1d2c3"))
			Expect(bytes.Index(out.Bytes(), []byte("Travel agent"))).To(BeNumerically("<", bytes.Index(out.Bytes(), []byte("Code reviewer"))))
		})

		It("honors the limit", func() {
			Expect(runLs(ctx, driver, lsOptions{limit: 1}, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Travel agent"))
			Expect(out.String()).NotTo(ContainSubstring("SQL tutor"))
		})

		It("prints summaries as JSON", func() {
			Expect(runLs(ctx, driver, lsOptions{jsonOut: true}, out)).To(Succeed())

			var summaries []proxy.ConversationSummary
			Expect(json.Unmarshal(out.Bytes(), &summaries)).To(Succeed())
			Expect(summaries).To(HaveLen(3))
			Expect(summaries[0].ID).To(Equal("77e1d2c3-cccc"))
			Expect(summaries[0].Messages).To(Equal(2))
		})

		It("says so when the store is empty", func() {
			Expect(runLs(ctx, inmemory.NewDriver(), lsOptions{}, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No conversations yet."))
		})
	})

	Describe("show", func() {
		It("prints every message", func() {
			Expect(runShow(ctx, driver, "77e1", false, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("77e1d2c3-cccc"))
			Expect(out.String()).To(ContainSubstring("Travel agent prompt"))
			Expect(out.String()).To(ContainSubstring("You are an expert."))
		})
	})

	Describe("checkout", func() {
		It("copies the conversation into the checkout state", func() {
			m := dotdir.NewManager()
			Expect(runCheckout(ctx, driver, m, configDir, "3f2b", out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Checked out 3f2b0000 (2 messages)"))

			state, err := m.LoadCheckoutState(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Conversation.ID).To(Equal("3f2b0000-bbbb"))
			Expect(state.Conversation.Messages).To(HaveLen(2))
		})

		It("clears the checkout state", func() {
			m := dotdir.NewManager()
			Expect(runCheckout(ctx, driver, m, configDir, "77e1", out)).To(Succeed())
			Expect(runClearCheckout(m, configDir, out)).To(Succeed())

			_, err := os.Stat(filepath.Join(configDir, "checkout.json"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("rm", func() {
		It("deletes by prefix", func() {
			Expect(runRm(ctx, driver, "77e1", out)).To(Succeed())

			_, err := driver.GetConversation(ctx, "77e1d2c3-cccc")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("fails for unknown ids", func() {
			Expect(runRm(ctx, driver, "nope", out)).To(HaveOccurred())
		})
	})

	Describe("status", func() {
		It("reports when nothing is checked out", func() {
			Expect(runStatus(dotdir.NewManager(), configDir, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No checkout state"))
		})

		It("shows the checked out conversation", func() {
			m := dotdir.NewManager()
			Expect(runCheckout(ctx, driver, m, configDir, "3f2a", io.Discard)).To(Succeed())

			Expect(runStatus(m, configDir, out)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("3f2a9c11-aaaa"))
			Expect(out.String()).To(ContainSubstring("Code reviewer prompt"))
		})
	})
})
