package crewai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"icebreaker/internal/adapters/crewai"
	"icebreaker/internal/core/domain"
	"icebreaker/internal/fakecrew"
)

var _ = Describe("Client", func() {
	var ctx context.Context

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		ctx = context.Background()
	})

	It("rejects an empty base url", func() {
		_, err := crewai.NewClient(domain.Endpoint{Token: "t"})
		Expect(err).To(MatchError(domain.ErrMissingEndpoint))
	})

	Context("against the fake crew", func() {
		var (
			fake   *fakecrew.Server
			server *httptest.Server
			client *crewai.Client
		)

		BeforeEach(func() {
			fake = fakecrew.New(fakecrew.Config{
				Token: "secret",
				Script: fakecrew.Sequence(
					map[string]any{"state": "STARTED"},
					map[string]any{"state": "SUCCESS", "result": map[string]any{"output": "report"}},
				),
			})
			server = httptest.NewServer(fake.Handler())
			DeferCleanup(server.Close)

			var err error
			client, err = crewai.NewClient(domain.Endpoint{BaseURL: server.URL + "/", Token: "secret"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("launches with the inputs wrapped and the bearer token set", func() {
			id, err := client.Launch(ctx, domain.Inputs{"company_name": "Acme", "count": 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("kickoff-0001"))

			kickoffs := fake.Kickoffs()
			Expect(kickoffs).To(HaveLen(1))
			Expect(kickoffs[0].Authorization).To(Equal("Bearer secret"))
			Expect(kickoffs[0].Inputs).To(HaveKeyWithValue("company_name", "Acme"))
			Expect(kickoffs[0].Inputs).To(HaveKeyWithValue("count", float64(2)))
		})

		It("polls and normalizes each status", func() {
			id, err := client.Launch(ctx, domain.Inputs{})
			Expect(err).NotTo(HaveOccurred())

			st, err := client.Poll(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.State).To(Equal(domain.StateRunning))
			Expect(st.Result).To(BeNil())

			st, err = client.Poll(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.State).To(Equal(domain.StateDone))
			Expect(st.ResultText()).To(Equal("report"))
			Expect(fake.Polls(id)).To(Equal(2))
		})

		It("returns a TransportError for an unknown job", func() {
			_, err := client.Poll(ctx, "missing")
			var terr *domain.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Op).To(Equal("poll"))
			Expect(terr.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns a TransportError when the token is rejected", func() {
			bad, err := crewai.NewClient(domain.Endpoint{BaseURL: server.URL, Token: "wrong"})
			Expect(err).NotTo(HaveOccurred())

			_, err = bad.Launch(ctx, domain.Inputs{})
			var terr *domain.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Op).To(Equal("launch"))
			Expect(terr.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(fake.Kickoffs()).To(BeEmpty())
		})
	})

	Context("against hand-written responses", func() {
		var (
			handler http.HandlerFunc
			client  *crewai.Client
		)

		BeforeEach(func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handler(w, r)
			}))
			DeferCleanup(server.Close)

			var err error
			client, err = crewai.NewClient(domain.Endpoint{BaseURL: server.URL, Token: "tok"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("sends the expected launch request", func() {
			var (
				method, path, contentType string
				body                      map[string]any
			)
			handler = func(w http.ResponseWriter, r *http.Request) {
				method, path, contentType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
				_ = json.NewDecoder(r.Body).Decode(&body)
				_, _ = w.Write([]byte(`{"kickoff_id":"abc"}`))
			}

			id, err := client.Launch(ctx, domain.Inputs{"k": "v"})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("abc"))
			Expect(method).To(Equal(http.MethodPost))
			Expect(path).To(Equal("/kickoff"))
			Expect(contentType).To(Equal("application/json"))
			Expect(body).To(Equal(map[string]any{"inputs": map[string]any{"k": "v"}}))
		})

		It("returns a ProtocolError when kickoff_id is missing", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"id":"abc"}`))
			}
			_, err := client.Launch(ctx, domain.Inputs{})
			var perr *domain.ProtocolError
			Expect(errors.As(err, &perr)).To(BeTrue())
			Expect(perr.Field).To(Equal("kickoff_id"))
		})

		It("returns a ProtocolError when the launch body is not json", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			}
			_, err := client.Launch(ctx, domain.Inputs{})
			var perr *domain.ProtocolError
			Expect(errors.As(err, &perr)).To(BeTrue())
		})

		It("returns a TransportError with the body on a server error", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}
			_, err := client.Launch(ctx, domain.Inputs{})
			var terr *domain.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(terr.Body).To(ContainSubstring("boom"))
		})

		It("escapes the job id in the status path", func() {
			var rawPath string
			handler = func(w http.ResponseWriter, r *http.Request) {
				rawPath = r.URL.EscapedPath()
				_, _ = w.Write([]byte(`{"state":"running"}`))
			}
			_, err := client.Poll(ctx, "a/b")
			Expect(err).NotTo(HaveOccurred())
			Expect(rawPath).To(Equal("/status/a%2Fb"))
		})

		It("degrades an undecodable status body to unknown", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			}
			st, err := client.Poll(ctx, "abc")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.State).To(Equal(domain.StateUnknown))
			Expect(st.Raw).To(Equal("unknown"))
		})

		It("returns the context error when cancelled", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_, err := client.Poll(cctx, "abc")
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})
	})

	It("leaves a shared http client untouched when setting the request timeout", func() {
		shared := &http.Client{Timeout: time.Minute}
		_, err := crewai.NewClient(domain.Endpoint{BaseURL: "http://crew.invalid"},
			crewai.WithHTTPClient(shared),
			crewai.WithRequestTimeout(time.Second),
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(shared.Timeout).To(Equal(time.Minute))
	})

	It("returns a TransportError when the server is unreachable", func() {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client, err := crewai.NewClient(domain.Endpoint{BaseURL: url, Token: "t"}, crewai.WithRequestTimeout(time.Second))
		Expect(err).NotTo(HaveOccurred())
		_, err = client.Launch(ctx, domain.Inputs{})
		var terr *domain.TransportError
		Expect(errors.As(err, &terr)).To(BeTrue())
		Expect(terr.StatusCode).To(BeZero())
	})
})
