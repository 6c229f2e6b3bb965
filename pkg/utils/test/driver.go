package testutils

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
)

// NewMemory returns a memory with a fresh id on date.
func NewMemory(date, title string) day.Memory {
	return day.Memory{
		ID:          uuid.NewString(),
		Date:        date,
		Title:       title,
		Description: title + " description",
	}
}

// DriverBehaviors registers the specs every storage.Driver must satisfy.
// newDriver is called before each test; the returned driver is closed after.
// Specs only assert on the memories they create so shared databases work.
func DriverBehaviors(newDriver func() storage.Driver) bool {
	return Describe("storage.Driver behavior", func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("creates and gets a memory", func() {
			m := NewMemory("2023-06-01", "Trip")
			m.Location = "Lisbon"
			m.Image = "https://example.com/a.jpg"
			Expect(driver.Create(ctx, m)).To(Succeed())

			got, err := driver.Get(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(m))
		})

		It("returns NotFoundError for unknown ids", func() {
			_, err := driver.Get(ctx, uuid.NewString())
			var notFound storage.NotFoundError
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("rejects duplicate ids", func() {
			m := NewMemory("2023-06-01", "Trip")
			Expect(driver.Create(ctx, m)).To(Succeed())

			err := driver.Create(ctx, m)
			var dup storage.DuplicateError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.ID).To(Equal(m.ID))
		})

		It("rejects memories without an id", func() {
			Expect(driver.Create(ctx, day.Memory{Date: "2023-06-01"})).NotTo(Succeed())
		})

		It("lists by date with the newest memory first within a day", func() {
			first := NewMemory("2023-06-01", "first")
			second := NewMemory("2023-06-01", "second")
			earlier := NewMemory("2023-01-02", "earlier")
			for _, m := range []day.Memory{first, second, earlier} {
				Expect(driver.Create(ctx, m)).To(Succeed())
			}

			all, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0)
			for _, m := range all {
				switch m.ID {
				case first.ID, second.ID, earlier.ID:
					ids = append(ids, m.ID)
				}
			}
			Expect(ids).To(Equal([]string{earlier.ID, second.ID, first.ID}))
		})
	})
}
