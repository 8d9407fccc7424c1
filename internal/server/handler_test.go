package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/server"
)

type mockBackend struct {
	chatFn   func(ctx context.Context, turns []server.Turn) (string, error)
	modelsFn func(ctx context.Context) ([]string, error)
}

func (m *mockBackend) Key() string             { return "ollama" }
func (m *mockBackend) Label() string           { return "Ollama (llama3.2)" }
func (m *mockBackend) Model() string           { return "llama3.2" }
func (m *mockBackend) Endpoint() string        { return "http://ollama:11434" }
func (m *mockBackend) UnreachableHint() string { return "start the runtime" }

func (m *mockBackend) Chat(ctx context.Context, turns []server.Turn) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, turns)
	}
	return "hello", nil
}

func (m *mockBackend) Models(ctx context.Context) ([]string, error) {
	if m.modelsFn != nil {
		return m.modelsFn(ctx)
	}
	return []string{"llama3.2"}, nil
}

type mockCheckout struct {
	got    server.CheckoutRequest
	called bool
	url    string
	err    error
}

func (m *mockCheckout) CreateCheckout(_ context.Context, req server.CheckoutRequest) (string, error) {
	m.called = true
	m.got = req
	return m.url, m.err
}

func doJSON(router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			Expect(json.NewEncoder(&buf).Encode(b)).To(Succeed())
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	}
	return w, resp
}

var _ = Describe("Handler", func() {
	var (
		router   http.Handler
		backend  *mockBackend
		checkout *mockCheckout
		prices   internal.PriceIDs
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		backend = &mockBackend{}
		checkout = &mockCheckout{url: "https://checkout.stripe.com/c/pay/cs_test"}
		prices = internal.PriceIDs{Basic: "price_bas", Pro: "price_pro", Elite: "price_elite"}
		router = server.NewRouter(server.NewHandler(backend, checkout, prices, "https://synapse.example"))
	})

	Describe("POST /api/chat", func() {
		It("forwards history followed by the new message", func() {
			var got []server.Turn
			backend.chatFn = func(_ context.Context, turns []server.Turn) (string, error) {
				got = turns
				return "Channels pass values.", nil
			}

			w, resp := doJSON(router, http.MethodPost, "/api/chat", map[string]any{
				"message": "and buffered ones?",
				"history": []map[string]string{
					{"role": "user", "content": "what is a channel?"},
					{"role": "assistant", "content": "a pipe"},
					{"content": "no role"},
				},
				"conversationId": "conv-1",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got).To(Equal([]server.Turn{
				{Role: "user", Content: "what is a channel?"},
				{Role: "assistant", Content: "a pipe"},
				{Role: "user", Content: "no role"},
				{Role: "user", Content: "and buffered ones?"},
			}))
			Expect(resp["response"]).To(Equal("Channels pass values."))
			Expect(resp["aiUsed"]).To(Equal("Ollama (llama3.2)"))
			Expect(resp["providerKey"]).To(Equal("ollama"))
			Expect(resp["mode"]).To(Equal("LOCAL_LLM"))
			Expect(resp["costUSD"]).To(Equal(float64(0)))
			Expect(resp["conversationId"]).To(Equal("conv-1"))
			Expect(resp["timestamp"]).NotTo(BeEmpty())
		})

		It("rejects a missing message", func() {
			w, resp := doJSON(router, http.MethodPost, "/api/chat", map[string]any{"history": []any{}})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(resp["error"]).To(ContainSubstring("message"))
		})

		It("rejects a non-string message", func() {
			w, _ := doJSON(router, http.MethodPost, "/api/chat", `{"message": 42}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("rejects a blank message without calling the runtime", func() {
			called := false
			backend.chatFn = func(context.Context, []server.Turn) (string, error) {
				called = true
				return "", nil
			}
			w, _ := doJSON(router, http.MethodPost, "/api/chat", map[string]any{"message": "   "})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(called).To(BeFalse())
		})

		It("returns the runtime hint when it is unreachable", func() {
			backend.chatFn = func(context.Context, []server.Turn) (string, error) {
				return "", fmt.Errorf("%w: connection refused", server.ErrUpstreamUnreachable)
			}

			w, resp := doJSON(router, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(resp["error"]).To(Equal("start the runtime"))
			Expect(resp["response"]).To(Equal("start the runtime"))
			Expect(resp["aiUsed"]).To(Equal("Error"))
			Expect(resp["providerKey"]).To(Equal("none"))
			Expect(resp["mode"]).To(Equal("ERROR"))
		})

		It("reports other runtime failures", func() {
			backend.chatFn = func(context.Context, []server.Turn) (string, error) {
				return "", errors.New("model not found")
			}
			w, resp := doJSON(router, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(resp["error"]).To(Equal("Error: model not found"))
		})
	})

	Describe("GET /api/chat", func() {
		It("lists the runtime models", func() {
			w, resp := doJSON(router, http.MethodGet, "/api/chat", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(resp["status"]).To(Equal("ok"))
			services := resp["services"].(map[string]any)
			Expect(services["model"]).To(Equal("llama3.2"))
			Expect(services["models"]).To(ConsistOf("llama3.2"))
		})

		It("reports an unhealthy runtime", func() {
			backend.modelsFn = func(context.Context) ([]string, error) {
				return nil, errors.New("down")
			}
			w, resp := doJSON(router, http.MethodGet, "/api/chat", nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(resp["status"]).To(Equal("error"))
			Expect(resp["message"]).To(Equal("down"))
		})
	})

	It("answers the liveness probe", func() {
		w, resp := doJSON(router, http.MethodGet, "/api/health", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(resp["status"]).To(Equal("ok"))
	})

	Describe("POST /api/stripe/checkout", func() {
		It("resolves the configured price for a plan", func() {
			w, resp := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{
				"planId": "basic",
				"email":  "a@b.c",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(resp["sessionUrl"]).To(Equal("https://checkout.stripe.com/c/pay/cs_test"))
			Expect(checkout.got).To(Equal(server.CheckoutRequest{
				PriceID: "price_bas",
				PlanID:  "bas",
				Email:   "a@b.c",
				Origin:  "https://synapse.example",
			}))
		})

		It("prefers an explicit price id", func() {
			w, _ := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{
				"planId":  "pro",
				"priceId": "price_custom",
			})
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(checkout.got.PriceID).To(Equal("price_custom"))
		})

		It("rejects an unknown plan", func() {
			w, resp := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{"planId": "platinum"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(resp["error"]).To(ContainSubstring("platinum"))
		})

		It("rejects a plan without a configured price", func() {
			router = server.NewRouter(server.NewHandler(backend, checkout, internal.PriceIDs{}, "https://synapse.example"))
			w, resp := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{"planId": "elite"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(resp["error"]).To(ContainSubstring("elite"))
		})

		It("reports payment provider failures", func() {
			checkout.err = errors.New("card declined")
			w, resp := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{"planId": "pro"})
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(resp["error"]).To(Equal("card declined"))
		})

		It("ignores forwarded headers when building redirect URLs", func() {
			body, _ := json.Marshal(map[string]string{"planId": "pro"})
			req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Forwarded-Proto", "https")
			req.Host = "attacker.example"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(checkout.got.Origin).To(Equal("https://synapse.example"))
		})

		It("is unavailable without a public URL", func() {
			router = server.NewRouter(server.NewHandler(backend, checkout, prices, ""))
			w, _ := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{"planId": "pro"})
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(checkout.called).To(BeFalse())
		})

		It("is unavailable without billing", func() {
			router = server.NewRouter(server.NewHandler(backend, nil, prices, ""))
			w, _ := doJSON(router, http.MethodPost, "/api/stripe/checkout", map[string]string{"planId": "pro"})
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
