package supabase_test

import (
	"context"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	supa "github.com/supabase-community/supabase-go"

	"github.com/sheeehy/lena/pkg/blob/supabase"
)

var _ = Describe("Uploader", func() {
	It("requires a client", func() {
		_, err := supabase.New(nil, "")
		Expect(err).To(HaveOccurred())
	})

	It("uploads to a live bucket", func() {
		url, key := os.Getenv("LENA_TEST_SUPABASE_URL"), os.Getenv("LENA_TEST_SUPABASE_KEY")
		if url == "" || key == "" {
			Skip("LENA_TEST_SUPABASE_URL/KEY not set, skipping Supabase tests")
		}

		client, err := supa.NewClient(url, key, nil)
		Expect(err).NotTo(HaveOccurred())
		u, err := supabase.New(client, os.Getenv("LENA_TEST_SUPABASE_BUCKET"))
		Expect(err).NotTo(HaveOccurred())

		uri, err := u.Upload(context.Background(), "probe.txt", strings.NewReader("probe"))
		Expect(err).NotTo(HaveOccurred())
		Expect(uri).To(ContainSubstring("-probe.txt"))
	})
})
