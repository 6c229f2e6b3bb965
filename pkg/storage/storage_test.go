package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
)

var _ = Describe("Filters", func() {
	memories := []day.Memory{
		{ID: "a", Date: "2022-12-31"},
		{ID: "b", Date: "2023-06-01"},
		{ID: "c", Date: "2023-06-01"},
	}

	It("filters by year", func() {
		Expect(storage.FilterYear(memories, 2023)).To(HaveLen(2))
		Expect(storage.FilterYear(memories, 2021)).To(BeEmpty())
	})

	It("filters by date preserving order", func() {
		got := storage.FilterDate(memories, "2023-06-01")
		Expect(got).To(HaveLen(2))
		Expect(got[0].ID).To(Equal("b"))
	})
})

var _ = Describe("Errors", func() {
	It("formats not found errors", func() {
		Expect(storage.NotFoundError{}.Error()).To(Equal("memory not found"))
		Expect(storage.NotFoundError{ID: "x"}.Error()).To(Equal("memory not found: x"))
	})

	It("formats duplicate errors", func() {
		Expect(storage.DuplicateError{ID: "x"}.Error()).To(Equal("memory already exists: x"))
	})
})

var _ = Describe("Watch", func() {
	It("refuses in-memory databases", func() {
		_, err := storage.Watch(context.Background(), ":memory:", 0)
		Expect(err).To(HaveOccurred())
	})

	It("signals once per burst of writes to the database file", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbPath := filepath.Join(GinkgoT().TempDir(), "lena.db")
		Expect(os.WriteFile(dbPath, []byte("a"), 0o600)).To(Succeed())

		changes, err := storage.Watch(ctx, dbPath, 50*time.Millisecond)
		Expect(err).NotTo(HaveOccurred())

		for range 3 {
			Expect(os.WriteFile(dbPath, []byte("b"), 0o600)).To(Succeed())
		}

		Eventually(changes).Should(Receive())
		Consistently(changes, 200*time.Millisecond).ShouldNot(Receive())
	})

	It("ignores unrelated files in the same directory", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dir := GinkgoT().TempDir()
		dbPath := filepath.Join(dir, "lena.db")

		changes, err := storage.Watch(ctx, dbPath, 20*time.Millisecond)
		Expect(err).NotTo(HaveOccurred())

		Expect(os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600)).To(Succeed())
		Consistently(changes, 150*time.Millisecond).ShouldNot(Receive())
	})

	It("closes the channel when the context ends", func() {
		ctx, cancel := context.WithCancel(context.Background())
		changes, err := storage.Watch(ctx, filepath.Join(GinkgoT().TempDir(), "lena.db"), 0)
		Expect(err).NotTo(HaveOccurred())

		cancel()
		Eventually(changes).Should(BeClosed())
	})
})
