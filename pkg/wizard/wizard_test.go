package wizard_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/memory"
	testutils "github.com/sheeehy/lena/pkg/utils/test"
	"github.com/sheeehy/lena/pkg/wizard"
)

var _ = Describe("Wizard", func() {
	var (
		ctx       context.Context
		now       time.Time
		store     *memory.Store
		persister *testutils.FakePersister
		uploader  *testutils.FakeUploader
		bus       *eventstream.Bus
		events    []*eventstream.MemoryCreatedEvent
		eventsMu  sync.Mutex
		w         *wizard.Wizard
		ids       int
	)

	newWizard := func() *wizard.Wizard {
		return wizard.New(wizard.Config{
			Store:     store,
			Persister: persister,
			Uploader:  uploader,
			Publisher: bus,
			BirthDate: time.Date(2003, time.January, 15, 0, 0, 0, 0, time.UTC),
			Clock:     func() time.Time { return now },
			NewID: func() string {
				ids++
				return fmt.Sprintf("mem-%d", ids)
			},
		})
	}

	fill := func(date, title, description string) {
		w.SetDate(date)
		w.SetTitle(title)
		w.SetDescription(description)
	}

	recorded := func() []*eventstream.MemoryCreatedEvent {
		eventsMu.Lock()
		defer eventsMu.Unlock()
		return append([]*eventstream.MemoryCreatedEvent(nil), events...)
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
		ids = 0
		store = memory.New(&testutils.FakeFetcher{}, memory.Options{Clock: func() time.Time { return now }})
		persister = &testutils.FakePersister{}
		uploader = &testutils.FakeUploader{}
		bus = eventstream.NewBus()
		events = nil
		bus.Subscribe(func(e *eventstream.MemoryCreatedEvent) {
			eventsMu.Lock()
			defer eventsMu.Unlock()
			events = append(events, e)
		})

		w = newWizard()
		w.Open()
	})

	Describe("Open", func() {
		It("starts on the date step with today's date", func() {
			snap := w.Snapshot()
			Expect(snap.Open).To(BeTrue())
			Expect(snap.Step).To(Equal(wizard.StepDate))
			Expect(snap.Draft.Date).To(Equal("10 03 2024"))
			Expect(snap.Errors).To(BeEmpty())
			Expect(snap.Image).To(BeNil())
		})

		It("fully resets a previously used form", func() {
			fill("01 06 2023", "Trip", "Fun")
			Expect(w.GoToStep(ctx, wizard.StepLocation)).To(Succeed())
			w.Close()
			w.Open()

			snap := w.Snapshot()
			Expect(snap.Step).To(Equal(wizard.StepDate))
			Expect(snap.Draft).To(Equal(wizard.Draft{Date: "10 03 2024"}))
		})

		It("refuses to advance while closed", func() {
			w.Close()
			Expect(w.GoNext(ctx)).To(MatchError(wizard.ErrClosed))
		})
	})

	Describe("GoNext", func() {
		It("advances through the steps when each is valid", func() {
			fill("01 06 2023", "Trip", "Fun")
			for _, expected := range []wizard.Step{wizard.StepTitle, wizard.StepDescription, wizard.StepLocation, wizard.StepImage} {
				Expect(w.GoNext(ctx)).To(Succeed())
				Expect(w.Step()).To(Equal(expected))
			}
		})

		It("stays on the date step with a format error", func() {
			w.SetDate("31022023")
			err := w.GoNext(ctx)

			var fe *wizard.FormatError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(w.Step()).To(Equal(wizard.StepDate))
			Expect(w.Snapshot().Errors).To(HaveKey(wizard.StepDate))
		})

		It("distinguishes dates before the birth date from future dates", func() {
			var re *wizard.RangeError

			w.SetDate("14 01 2003")
			Expect(errors.As(w.GoNext(ctx), &re)).To(BeTrue())
			Expect(re.Reason).To(Equal(wizard.BeforeBirth))

			w.SetDate("11 03 2024")
			Expect(errors.As(w.GoNext(ctx), &re)).To(BeTrue())
			Expect(re.Reason).To(Equal(wizard.InFuture))

			Expect(w.Step()).To(Equal(wizard.StepDate))
		})

		It("accepts the birth date and today", func() {
			w.SetDate("15 01 2003")
			Expect(w.GoNext(ctx)).To(Succeed())

			Expect(w.GoToStep(ctx, wizard.StepDate)).To(Succeed())
			w.SetDate("10 03 2024")
			Expect(w.GoNext(ctx)).To(Succeed())
		})

		It("rejects a full day", func() {
			for i := range day.MaxMemoriesPerDay {
				Expect(store.Append(day.Memory{ID: fmt.Sprintf("full-%d", i), Date: "2023-06-01"})).To(BeTrue())
			}
			w.SetDate("01 06 2023")

			var ce *wizard.CapacityError
			Expect(errors.As(w.GoNext(ctx), &ce)).To(BeTrue())
			Expect(w.Step()).To(Equal(wizard.StepDate))
		})

		It("rejects dates the timeline does not show", func() {
			store = memory.New(&testutils.FakeFetcher{}, memory.Options{
				StartYear: 2003,
				Clock:     func() time.Time { return now },
			})
			w = wizard.New(wizard.Config{
				Store:     store,
				Persister: persister,
				Publisher: bus,
				BirthDate: time.Date(1995, time.July, 20, 0, 0, 0, 0, time.UTC),
				Clock:     func() time.Time { return now },
			})
			w.Open()
			w.SetDate("01 06 1999")

			var re *wizard.RangeError
			Expect(errors.As(w.GoNext(ctx), &re)).To(BeTrue())
			Expect(re.Reason).To(Equal(wizard.BeforeTimeline))
			Expect(re.Error()).To(Equal("Memory date is before the start of your timeline"))
			Expect(w.Step()).To(Equal(wizard.StepDate))

			fill("01 06 1999", "Old", "Photo")
			_, err := w.Submit(ctx)
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(persister.Calls()).To(BeEmpty())
		})

		It("accepts a day one short of capacity", func() {
			for i := range day.MaxMemoriesPerDay - 1 {
				store.Append(day.Memory{ID: fmt.Sprintf("m-%d", i), Date: "2023-06-01"})
			}
			w.SetDate("01 06 2023")
			Expect(w.GoNext(ctx)).To(Succeed())
		})

		It("requires a title that is not blank", func() {
			fill("01 06 2023", "   ", "Fun")
			Expect(w.GoNext(ctx)).To(Succeed())

			var re *wizard.RequiredError
			Expect(errors.As(w.GoNext(ctx), &re)).To(BeTrue())
			Expect(re.Step).To(Equal(wizard.StepTitle))
			Expect(w.Step()).To(Equal(wizard.StepTitle))
		})

		It("clears a step error once the field changes", func() {
			w.SetDate("99")
			Expect(w.GoNext(ctx)).NotTo(Succeed())
			w.SetDate("01062023")
			Expect(w.Snapshot().Errors).NotTo(HaveKey(wizard.StepDate))
		})

		It("checks a step without recording the error or moving", func() {
			w.SetDate("11 03 2024")

			var re *wizard.RangeError
			Expect(errors.As(w.Validate(wizard.StepDate), &re)).To(BeTrue())
			Expect(re.Reason).To(Equal(wizard.InFuture))
			Expect(w.Snapshot().Errors).To(BeEmpty())
			Expect(w.Step()).To(Equal(wizard.StepDate))

			w.SetDate("10 03 2024")
			Expect(w.Validate(wizard.StepDate)).To(Succeed())
			Expect(w.Validate(wizard.StepTitle)).To(HaveOccurred())
		})

		It("never blocks on the location step", func() {
			fill("01 06 2023", "Trip", "Fun")
			Expect(w.GoToStep(ctx, wizard.StepLocation)).To(Succeed())
			Expect(w.GoNext(ctx)).To(Succeed())
			Expect(w.Step()).To(Equal(wizard.StepImage))
		})
	})

	Describe("GoToStep", func() {
		It("jumps backwards without validating", func() {
			fill("01 06 2023", "Trip", "Fun")
			Expect(w.GoToStep(ctx, wizard.StepImage)).To(Succeed())
			w.SetTitle("")

			Expect(w.GoToStep(ctx, wizard.StepDate)).To(Succeed())
			Expect(w.Step()).To(Equal(wizard.StepDate))
		})

		It("stops a forward jump on the first failing step", func() {
			w.SetDate("01 06 2023")
			err := w.GoToStep(ctx, wizard.StepImage)

			var re *wizard.RequiredError
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(w.Step()).To(Equal(wizard.StepTitle))
			Expect(w.Snapshot().Errors).To(HaveKey(wizard.StepTitle))
		})

		It("does not validate the target step itself", func() {
			w.SetDate("01 06 2023")
			Expect(w.GoToStep(ctx, wizard.StepTitle)).To(Succeed())
			Expect(w.Step()).To(Equal(wizard.StepTitle))
		})

		It("rejects unknown steps", func() {
			Expect(w.GoToStep(ctx, wizard.Step(42))).NotTo(Succeed())
			Expect(w.Step()).To(Equal(wizard.StepDate))
		})
	})

	Describe("images", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "beach photo.jpg")
			Expect(os.WriteFile(path, []byte("jpeg"), 0o600)).To(Succeed())
		})

		It("regenerates the preview reference on every selection", func() {
			Expect(w.SelectImage(path)).To(Succeed())
			first := w.Snapshot().Image
			Expect(first).NotTo(BeNil())
			Expect(first.Path).To(Equal(path))

			Expect(w.SelectImage(path)).To(Succeed())
			second := w.Snapshot().Image
			Expect(second.Preview).NotTo(Equal(first.Preview))
		})

		It("clears the selection", func() {
			Expect(w.SelectImage(path)).To(Succeed())
			w.ClearImage()
			Expect(w.Snapshot().Image).To(BeNil())
		})

		It("rejects a missing file", func() {
			Expect(w.SelectImage(filepath.Join(filepath.Dir(path), "nope.jpg"))).NotTo(Succeed())
			Expect(w.Snapshot().Image).To(BeNil())
		})

		It("uploads the selected image and stores its URI", func() {
			uploader.URI = "https://blobs.example.com/beach.jpg"
			fill("01 06 2023", "Beach", "Sunny")
			Expect(w.SelectImage(path)).To(Succeed())

			m, err := w.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Image).To(Equal("https://blobs.example.com/beach.jpg"))
			Expect(uploader.Uploads()).To(HaveLen(1))
			Expect(uploader.Uploads()).To(Equal([]string{"beach photo.jpg"}))
		})

		It("stays on the image step and keeps the file when the upload fails", func() {
			uploader.Err = errors.New("bucket unavailable")
			fill("01 06 2023", "Beach", "Sunny")
			Expect(w.GoToStep(ctx, wizard.StepImage)).To(Succeed())
			Expect(w.SelectImage(path)).To(Succeed())

			err := w.GoNext(ctx)
			var ue *wizard.UploadError
			Expect(errors.As(err, &ue)).To(BeTrue())

			snap := w.Snapshot()
			Expect(snap.Step).To(Equal(wizard.StepImage))
			Expect(snap.Image).NotTo(BeNil())
			Expect(snap.Submitting).To(BeFalse())
			Expect(persister.Calls()).To(BeEmpty())
			Expect(store.MemoryCount("2023-06-01")).To(Equal(0))

			note, ok := w.Notification()
			Expect(ok).To(BeTrue())
			Expect(note.Kind).To(Equal(wizard.NotifyError))
		})

		It("fails an image submission without an uploader", func() {
			w = wizard.New(wizard.Config{Store: store, Persister: persister, Clock: func() time.Time { return now }})
			w.Open()
			fill("01 06 2023", "Beach", "Sunny")
			Expect(w.SelectImage(path)).To(Succeed())

			_, err := w.Submit(ctx)
			var ue *wizard.UploadError
			Expect(errors.As(err, &ue)).To(BeTrue())
		})
	})

	Describe("Submit", func() {
		It("saves Trip on 01 06 2023 end to end", func() {
			fill("01 06 2023", "Trip", "Fun")
			Expect(w.GoToStep(ctx, wizard.StepImage)).To(Succeed())
			Expect(w.GoNext(ctx)).To(Succeed())

			rec, ok := store.Day("2023-06-01")
			Expect(ok).To(BeTrue())
			Expect(rec.Memories).To(HaveLen(1))
			Expect(rec.Memories[0].Title).To(Equal("Trip"))
			Expect(rec.Memories[0].Description).To(Equal("Fun"))
			Expect(rec.Memories[0].Location).To(BeEmpty())
			Expect(rec.Memories[0].Image).To(BeEmpty())

			Expect(persister.Calls()).To(HaveLen(1))
			Expect(persister.Calls()[0].ID).To(Equal(rec.Memories[0].ID))
			Expect(store.Pending(rec.Memories[0].ID)).To(BeFalse())

			Expect(recorded()).To(HaveLen(1))
			Expect(recorded()[0].Memory.ID).To(Equal(rec.Memories[0].ID))
			Expect(recorded()[0].Source.Origin).To(Equal(eventstream.OriginTimeline))

			Expect(w.IsOpen()).To(BeFalse())
			note, ok := w.Notification()
			Expect(ok).To(BeTrue())
			Expect(note.Kind).To(Equal(wizard.NotifySuccess))
			Expect(note.Message).To(Equal("Your memory has been saved successfully."))
		})

		It("trims text fields", func() {
			fill("01 06 2023", "  Trip ", " Fun\n")
			w.SetLocation("  Dublin ")
			m, err := w.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Title).To(Equal("Trip"))
			Expect(m.Description).To(Equal("Fun"))
			Expect(m.Location).To(Equal("Dublin"))
		})

		It("appends to the store before persisting", func() {
			var seenPending bool
			persister.OnCreate = func(m day.Memory) {
				seenPending = store.Has(m.ID) && store.Pending(m.ID)
			}
			fill("01 06 2023", "Trip", "Fun")

			_, err := w.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(seenPending).To(BeTrue())
		})

		It("does not duplicate the memory through a subscribed store", func() {
			unsubscribe := store.Subscribe(bus)
			DeferCleanup(unsubscribe)

			fill("01 06 2023", "Trip", "Fun")
			_, err := w.Submit(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.MemoryCount("2023-06-01")).To(Equal(1))
		})

		It("re-checks the date bounds before any network call", func() {
			fill("01 06 2023", "Trip", "Fun")
			Expect(w.GoToStep(ctx, wizard.StepImage)).To(Succeed())
			w.SetDate("01 01 1999")

			_, err := w.Submit(ctx)
			var re *wizard.RangeError
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(w.Step()).To(Equal(wizard.StepDate))
			Expect(persister.Calls()).To(BeEmpty())
			Expect(uploader.Uploads()).To(BeEmpty())
		})

		It("refuses to submit a blank description", func() {
			fill("01 06 2023", "Trip", "")
			_, err := w.Submit(ctx)

			var re *wizard.RequiredError
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(w.Step()).To(Equal(wizard.StepDescription))
			Expect(persister.Calls()).To(BeEmpty())
		})

		Context("when persisting fails", func() {
			BeforeEach(func() {
				persister.Err = errors.New("api unavailable")
				fill("01 06 2023", "Trip", "Fun")
				Expect(w.GoToStep(ctx, wizard.StepImage)).To(Succeed())
			})

			It("keeps the optimistic entry and the form values", func() {
				_, err := w.Submit(ctx)

				var pe *wizard.PersistError
				Expect(errors.As(err, &pe)).To(BeTrue())
				Expect(store.Has(pe.MemoryID)).To(BeTrue())
				Expect(store.Pending(pe.MemoryID)).To(BeTrue())

				snap := w.Snapshot()
				Expect(snap.Open).To(BeTrue())
				Expect(snap.Submitting).To(BeFalse())
				Expect(snap.Step).To(Equal(wizard.StepImage))
				Expect(snap.Draft.Title).To(Equal("Trip"))
				Expect(snap.Draft.Description).To(Equal("Fun"))
				Expect(recorded()).To(BeEmpty())

				note, ok := w.Notification()
				Expect(ok).To(BeTrue())
				Expect(note.Message).To(Equal("We couldn't save your memory. Please try again."))
			})

			It("retries the same memory when resubmitted unchanged", func() {
				_, err := w.Submit(ctx)
				Expect(err).To(HaveOccurred())

				persister.Err = nil
				m, err := w.Submit(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(m.ID).To(Equal("mem-1"))
				Expect(store.MemoryCount("2023-06-01")).To(Equal(1))
				Expect(store.Pending("mem-1")).To(BeFalse())
			})

			It("replaces the unsaved memory when the form changed before retrying", func() {
				_, err := w.Submit(ctx)
				Expect(err).To(HaveOccurred())

				persister.Err = nil
				w.SetTitle("Road trip")
				m, err := w.Submit(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(m.ID).To(Equal("mem-2"))
				Expect(store.MemoryCount("2023-06-01")).To(Equal(1))
				Expect(store.Has("mem-1")).To(BeFalse())
				Expect(store.Pending("mem-1")).To(BeFalse())
			})

			It("never lets an edited retry push a day past capacity", func() {
				for i := range day.MaxMemoriesPerDay - 1 {
					Expect(store.Append(day.Memory{ID: fmt.Sprintf("m-%d", i), Date: "2023-06-01"})).To(BeTrue())
				}
				_, err := w.Submit(ctx)
				Expect(err).To(HaveOccurred())
				Expect(store.MemoryCount("2023-06-01")).To(Equal(day.MaxMemoriesPerDay))

				w.SetTitle("Trip edited")
				_, err = w.Submit(ctx)
				Expect(err).To(HaveOccurred())
				Expect(store.MemoryCount("2023-06-01")).To(Equal(day.MaxMemoriesPerDay))

				persister.Err = nil
				w.SetTitle("Trip edited again")
				m, err := w.Submit(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(m.Title).To(Equal("Trip edited again"))
				Expect(store.MemoryCount("2023-06-01")).To(Equal(day.MaxMemoriesPerDay))
				Expect(store.Has("mem-1")).To(BeFalse())
				Expect(store.Has("mem-2")).To(BeFalse())
			})
		})

		It("rejects a second submission while one is in flight", func() {
			persister.Block = make(chan struct{})
			fill("01 06 2023", "Trip", "Fun")
			Expect(w.GoToStep(ctx, wizard.StepImage)).To(Succeed())

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- w.GoNext(ctx)
			}()
			Eventually(w.Submitting).Should(BeTrue())

			Expect(w.GoNext(ctx)).To(MatchError(wizard.ErrSubmitting))
			_, err := w.Submit(ctx)
			Expect(err).To(MatchError(wizard.ErrSubmitting))

			close(persister.Block)
			Eventually(done).Should(Receive(BeNil()))
			Expect(persister.Calls()).To(HaveLen(1))
		})

		It("ignores the result of a submission whose wizard was closed", func() {
			persister.Block = make(chan struct{})
			fill("01 06 2023", "Trip", "Fun")

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := w.Submit(ctx)
				done <- err
			}()
			Eventually(w.Submitting).Should(BeTrue())

			w.Close()
			close(persister.Block)
			Eventually(done).Should(Receive(MatchError(wizard.ErrClosed)))

			Expect(w.IsOpen()).To(BeFalse())
			_, ok := w.Notification()
			Expect(ok).To(BeFalse())
			Expect(w.Snapshot().Draft.Title).To(BeEmpty())
		})
	})
})
