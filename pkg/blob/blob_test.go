package blob_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sheeehy/lena/pkg/blob"
)

var _ = Describe("ObjectName", func() {
	It("prefixes a uuid to the base name", func() {
		name := blob.ObjectName("/home/me/Pictures/beach day.jpg")
		Expect(name).To(MatchRegexp(`^[0-9a-f-]{36}-beach_day\.jpg$`))
	})

	It("never collides", func() {
		Expect(blob.ObjectName("a.png")).NotTo(Equal(blob.ObjectName("a.png")))
	})

	It("falls back to a generic name", func() {
		Expect(strings.HasSuffix(blob.ObjectName("///"), "-image")).To(BeTrue())
	})
})

var _ = DescribeTable("ContentType",
	func(name, expected string) {
		Expect(blob.ContentType(name)).To(Equal(expected))
	},
	Entry("jpeg", "a.JPG", "image/jpeg"),
	Entry("png", "a.png", "image/png"),
	Entry("webp", "a.webp", "image/webp"),
	Entry("unknown", "a.bin", "application/octet-stream"),
)
