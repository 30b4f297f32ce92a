package sse_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/sse"
)

var _ = Describe("Frame helpers", func() {
	DescribeTable("IsIgnorable",
		func(line string, expected bool) {
			Expect(sse.IsIgnorable(line)).To(Equal(expected))
		},
		Entry("blank", "", true),
		Entry("comment", ": keep-alive", true),
		Entry("data", "data: x", false),
		Entry("event field", "event: message", false),
	)

	DescribeTable("Payload",
		func(line, payload string, ok bool) {
			got, gotOK := sse.Payload(line)
			Expect(gotOK).To(Equal(ok))
			Expect(got).To(Equal(payload))
		},
		Entry("json", `data: {"a":1}`, `{"a":1}`, true),
		Entry("trims whitespace", "data:   [DONE]  ", "[DONE]", true),
		Entry("missing space", "data:[DONE]", "", false),
		Entry("other field", "id: 3", "", false),
	)
})
