package wizard_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sheeehy/lena/pkg/wizard"
)

type counter map[string]int

func (c counter) MemoryCount(date string) int { return c[date] }

var _ = Describe("Validation", func() {
	DescribeTable("MaskDate",
		func(input, expected string) {
			Expect(wizard.MaskDate(input)).To(Equal(expected))
		},
		Entry("empty", "", ""),
		Entry("day only", "0", "0"),
		Entry("day and month", "0106", "01 06"),
		Entry("partial year", "010620", "01 06 20"),
		Entry("full date", "01062023", "01 06 2023"),
		Entry("separators are dropped", "01/06/2023", "01 06 2023"),
		Entry("extra digits are dropped", "0106202399", "01 06 2023"),
		Entry("already masked", "01 06 2023", "01 06 2023"),
	)

	Describe("ParseDate", func() {
		It("parses a real date", func() {
			t, err := wizard.ParseDate("29 02 2024")
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)))
		})

		DescribeTable("rejects malformed or impossible dates",
			func(input string) {
				_, err := wizard.ParseDate(input)
				var fe *wizard.FormatError
				Expect(errors.As(err, &fe)).To(BeTrue())
				Expect(err.Error()).To(Equal("Please enter a valid date in DD MM YYYY format."))
			},
			Entry("missing padding", "1 6 2023"),
			Entry("no separators", "01062023"),
			Entry("impossible day", "31 02 2023"),
			Entry("not a leap year", "29 02 2023"),
			Entry("impossible day in a leap year", "31 02 2024"),
			Entry("month out of range", "01 13 2023"),
			Entry("empty", ""),
		)

		It("round-trips through FormatDate", func() {
			t, err := wizard.ParseDate("01 06 2023")
			Expect(err).NotTo(HaveOccurred())
			Expect(wizard.FormatDate(t)).To(Equal("01 06 2023"))
		})
	})

	Describe("CheckBounds", func() {
		birth := time.Date(2003, time.January, 15, 0, 0, 0, 0, time.UTC)
		today := time.Date(2024, time.March, 10, 18, 30, 0, 0, time.UTC)

		DescribeTable("reasons",
			func(date time.Time, reason *wizard.RangeReason, message string) {
				err := wizard.CheckBounds(date, birth, today)
				if reason == nil {
					Expect(err).NotTo(HaveOccurred())
					return
				}
				var re *wizard.RangeError
				Expect(errors.As(err, &re)).To(BeTrue())
				Expect(re.Reason).To(Equal(*reason))
				Expect(err.Error()).To(Equal(message))
			},
			Entry("birth day itself", birth, nil, ""),
			Entry("today", time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC), nil, ""),
			Entry("day before birth", birth.AddDate(0, 0, -1), ptr(wizard.BeforeBirth), "Memory date cannot be before your birthday"),
			Entry("tomorrow", time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), ptr(wizard.InFuture), "Memory date cannot be in the future"),
		)

		It("leaves the lower bound open without a birth date", func() {
			Expect(wizard.CheckBounds(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{}, today)).To(Succeed())
		})
	})

	Describe("CheckCapacity", func() {
		It("accepts a day below capacity", func() {
			Expect(wizard.CheckCapacity("2023-06-01", counter{"2023-06-01": 7})).To(Succeed())
		})

		It("rejects a full day", func() {
			err := wizard.CheckCapacity("2023-06-01", counter{"2023-06-01": 8})
			var ce *wizard.CapacityError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(ce.Count).To(Equal(8))
			Expect(err.Error()).To(Equal("This date has the maximum number of memories."))
		})
	})

	It("requires non-blank text", func() {
		Expect(wizard.CheckRequired(wizard.StepTitle, "Trip")).To(Succeed())
		err := wizard.CheckRequired(wizard.StepTitle, "  \t ")
		var re *wizard.RequiredError
		Expect(errors.As(err, &re)).To(BeTrue())
		Expect(re.Step).To(Equal(wizard.StepTitle))
		Expect(err.Error()).To(Equal("Please add a title."))
	})
})

func ptr[T any](v T) *T { return &v }
