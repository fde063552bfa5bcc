package fakecrew_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"icebreaker/internal/fakecrew"
)

var _ = Describe("Server", func() {
	var srv *fakecrew.Server

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		srv = fakecrew.New(fakecrew.Config{
			Token: "tok",
			Script: fakecrew.Sequence(
				map[string]any{"state": "PENDING"},
				map[string]any{"state": "SUCCESS", "final_output": "done"},
			),
		})
	})

	serve := func(method, path, auth string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	decode := func(w *httptest.ResponseRecorder) map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &out)).To(Succeed())
		return out
	}

	It("answers health checks without a token", func() {
		w := serve(http.MethodGet, "/health", "", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("rejects requests without the bearer token", func() {
		w := serve(http.MethodPost, "/kickoff", "", []byte(`{"inputs":{}}`))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(srv.Kickoffs()).To(BeEmpty())
	})

	It("rejects a malformed kickoff body", func() {
		w := serve(http.MethodPost, "/kickoff", "Bearer tok", []byte(`{`))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("assigns sequential kickoff ids and records inputs", func() {
		w := serve(http.MethodPost, "/kickoff", "Bearer tok", []byte(`{"inputs":{"a":"b"}}`))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)).To(HaveKeyWithValue("kickoff_id", "kickoff-0001"))

		w = serve(http.MethodPost, "/kickoff", "Bearer tok", []byte(`{}`))
		Expect(decode(w)).To(HaveKeyWithValue("kickoff_id", "kickoff-0002"))

		kickoffs := srv.Kickoffs()
		Expect(kickoffs).To(HaveLen(2))
		Expect(kickoffs[0].Inputs).To(Equal(map[string]any{"a": "b"}))
		Expect(kickoffs[1].Inputs).To(BeEmpty())
	})

	It("replays the script and repeats the last payload", func() {
		serve(http.MethodPost, "/kickoff", "Bearer tok", []byte(`{"inputs":{}}`))

		Expect(decode(serve(http.MethodGet, "/status/kickoff-0001", "Bearer tok", nil))).
			To(HaveKeyWithValue("state", "PENDING"))
		Expect(decode(serve(http.MethodGet, "/status/kickoff-0001", "Bearer tok", nil))).
			To(HaveKeyWithValue("final_output", "done"))
		Expect(decode(serve(http.MethodGet, "/status/kickoff-0001", "Bearer tok", nil))).
			To(HaveKeyWithValue("state", "SUCCESS"))
		Expect(srv.Polls("kickoff-0001")).To(Equal(3))
	})

	It("returns 404 for unknown jobs", func() {
		w := serve(http.MethodGet, "/status/nope", "Bearer tok", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(srv.Polls("nope")).To(BeZero())
	})

	It("echoes inputs in the default script", func() {
		payloads := fakecrew.DefaultScript(map[string]any{"b": 2, "a": "x"})
		Expect(payloads).To(HaveLen(3))
		last := payloads[2]
		Expect(last).To(HaveKeyWithValue("state", "SUCCESS"))
		output := last["result"].(map[string]any)["output"].(string)
		Expect(output).To(ContainSubstring("- **a**: x\n- **b**: 2\n"))
	})
})
