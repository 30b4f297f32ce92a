package promptsmithcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	promptsmithcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith"
)

var _ = Describe("NewPromptsmithCmd", func() {
	It("registers every subcommand", func() {
		cmd := promptsmithcmder.NewPromptsmithCmd()

		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"chat", "serve", "test-prompt", "workflow", "history", "config", "init", "version",
		))
	})

	It("has the global flags", func() {
		cmd := promptsmithcmder.NewPromptsmithCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})

	It("prints the version", func() {
		var out bytes.Buffer
		cmd := promptsmithcmder.NewPromptsmithCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Version: dev"))
	})
})
