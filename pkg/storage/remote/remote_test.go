package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
	"github.com/sheeehy/lena/pkg/storage/inmemory"
	"github.com/sheeehy/lena/pkg/storage/remote"
	testutils "github.com/sheeehy/lena/pkg/utils/test"
)

// fakeAPI serves the memory routes from an in-memory driver.
func fakeAPI(backing *inmemory.Driver) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/memories", func(w http.ResponseWriter, r *http.Request) {
		all, _ := backing.List(r.Context())
		_ = json.NewEncoder(w).Encode(map[string]any{"memories": all})
	})
	mux.HandleFunc("GET /api/memories/{id}", func(w http.ResponseWriter, r *http.Request) {
		m, err := backing.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"memory": m})
	})
	mux.HandleFunc("POST /api/memories", func(w http.ResponseWriter, r *http.Request) {
		var m day.Memory
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := backing.Create(r.Context(), m); err != nil {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"memory": m})
	})
	return mux
}

var _ = Describe("Driver", func() {
	It("requires a target", func() {
		_, err := remote.NewDriver(remote.Config{})
		Expect(err).To(HaveOccurred())
	})

	Context("against a healthy API", func() {
		var server *httptest.Server

		BeforeEach(func() {
			server = httptest.NewServer(fakeAPI(inmemory.NewDriver()))
			DeferCleanup(server.Close)
		})

		testutils.DriverBehaviors(func() storage.Driver {
			d, err := remote.NewDriver(remote.Config{Target: server.URL + "/"})
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})

	Context("against a failing API", func() {
		var (
			server *httptest.Server
			hits   atomic.Int32
		)

		BeforeEach(func() {
			hits.Store(0)
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"database unavailable"}`))
			}))
			DeferCleanup(server.Close)
		})

		It("surfaces the API error message", func() {
			d, err := remote.NewDriver(remote.Config{Target: server.URL})
			Expect(err).NotTo(HaveOccurred())

			_, err = d.List(context.Background())
			Expect(err).To(MatchError(ContainSubstring("database unavailable")))
		})

		It("opens the breaker after consecutive failures", func() {
			d, err := remote.NewDriver(remote.Config{Target: server.URL})
			Expect(err).NotTo(HaveOccurred())

			for range 3 {
				_, err = d.List(context.Background())
				Expect(err).To(HaveOccurred())
			}

			_, err = d.List(context.Background())
			Expect(errors.Is(err, gobreaker.ErrOpenState)).To(BeTrue())
			Expect(hits.Load()).To(BeNumerically("==", 3))
		})

		It("does not count not-found answers as failures", func() {
			notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(strings.HasPrefix(r.URL.Path, "/api/memories/")).To(BeTrue())
				w.WriteHeader(http.StatusNotFound)
			}))
			defer notFound.Close()

			d, err := remote.NewDriver(remote.Config{Target: notFound.URL})
			Expect(err).NotTo(HaveOccurred())

			for range 5 {
				_, err = d.Get(context.Background(), "missing")
				var nf storage.NotFoundError
				Expect(errors.As(err, &nf)).To(BeTrue())
			}
		})
	})
})
