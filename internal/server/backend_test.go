package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go/option"
	"github.com/stripe/stripe-go/v72"

	"github.com/iksnae/synapse-chat/internal"
	"github.com/iksnae/synapse-chat/internal/server"
)

var _ = Describe("OllamaBackend", func() {
	It("sends the conversation without streaming", func() {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"pong"},"done":true}`))
		}))
		defer srv.Close()

		b := server.NewOllamaBackend(srv.URL+"/", "mixtral", nil)
		answer, err := b.Chat(context.Background(), []server.Turn{{Role: "user", Content: "ping"}})

		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("pong"))
		Expect(got["model"]).To(Equal("mixtral"))
		Expect(got["stream"]).To(BeFalse())
		Expect(got["messages"]).To(HaveLen(1))
		Expect(b.Label()).To(Equal("Ollama (mixtral)"))
	})

	It("lists installed models", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/tags"))
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"mixtral"}]}`))
		}))
		defer srv.Close()

		models, err := server.NewOllamaBackend(srv.URL, "", nil).Models(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(models).To(Equal([]string{"llama3.2:latest", "mixtral"}))
	})

	It("surfaces runtime errors", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model 'nope' not found"}`))
		}))
		defer srv.Close()

		_, err := server.NewOllamaBackend(srv.URL, "nope", nil).Chat(context.Background(), nil)
		Expect(err).To(MatchError(ContainSubstring("model 'nope' not found")))
		Expect(err).NotTo(MatchError(server.ErrUpstreamUnreachable))
	})

	It("marks a refused connection as unreachable", func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		_, err := server.NewOllamaBackend(addr, "", nil).Chat(context.Background(), nil)
		Expect(err).To(MatchError(server.ErrUpstreamUnreachable))
	})

	It("defaults host and model", func() {
		b := server.NewOllamaBackend("", "", nil)
		Expect(b.Endpoint()).To(Equal(internal.DefaultOllamaHost))
		Expect(b.Model()).To(Equal(internal.DefaultOllamaModel))
	})
})

var _ = Describe("OpenAIBackend", func() {
	It("maps roles onto chat completion messages", func() {
		var got struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(strings.HasSuffix(r.URL.Path, "/chat/completions")).To(BeTrue())
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"forty-two"}}],
				"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`))
		}))
		defer srv.Close()

		b, err := server.NewOpenAIBackend(srv.URL, "sk-test", "", option.WithMaxRetries(0))
		Expect(err).NotTo(HaveOccurred())

		answer, err := b.Chat(context.Background(), []server.Turn{
			{Role: "user", Content: "question"},
			{Role: "assistant", Content: "thinking"},
			{Role: "user", Content: "answer?"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(answer).To(Equal("forty-two"))
		Expect(got.Model).To(Equal(internal.DefaultOpenAIModel))
		Expect(got.Messages).To(HaveLen(3))
		Expect(got.Messages[1].Role).To(Equal("assistant"))
		Expect(got.Messages[1].Content).To(Equal("thinking"))
	})

	It("lists model ids", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(strings.HasSuffix(r.URL.Path, "/models")).To(BeTrue())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model","created":1,"owned_by":"openai"}]}`))
		}))
		defer srv.Close()

		b, err := server.NewOpenAIBackend(srv.URL, "sk-test", "gpt-4o-mini", option.WithMaxRetries(0))
		Expect(err).NotTo(HaveOccurred())
		models, err := b.Models(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(models).To(ConsistOf("gpt-4o-mini"))
	})

	It("requires a key for the hosted endpoint", func() {
		_, err := server.NewOpenAIBackend("", "", "")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewBackend", func() {
	It("defaults to Ollama", func() {
		b, err := server.NewBackend(internal.ServerConfig{OllamaModel: "phi3"})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Key()).To(Equal("ollama"))
		Expect(b.Model()).To(Equal("phi3"))
	})

	It("selects an OpenAI-compatible endpoint", func() {
		b, err := server.NewBackend(internal.ServerConfig{LLMProvider: "OpenAI", OpenAIBaseURL: "http://localhost:8080/v1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Key()).To(Equal("openai"))
	})

	It("rejects unknown providers", func() {
		_, err := server.NewBackend(internal.ServerConfig{LLMProvider: "llamafile"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BuildCheckoutParams", func() {
	It("builds a single-item card subscription", func() {
		params := server.BuildCheckoutParams(server.CheckoutRequest{
			PriceID: "price_pro",
			PlanID:  "pro",
			Email:   "a@b.c",
			Origin:  "https://synapse.example",
		})

		Expect(*params.Mode).To(Equal(string(stripe.CheckoutSessionModeSubscription)))
		Expect(params.PaymentMethodTypes).To(HaveLen(1))
		Expect(*params.PaymentMethodTypes[0]).To(Equal("card"))
		Expect(params.LineItems).To(HaveLen(1))
		Expect(*params.LineItems[0].Price).To(Equal("price_pro"))
		Expect(*params.LineItems[0].Quantity).To(Equal(int64(1)))
		Expect(*params.CustomerEmail).To(Equal("a@b.c"))
		Expect(*params.CancelURL).To(Equal("https://synapse.example/pricing"))

		success, err := url.Parse(*params.SuccessURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(success.Path).To(Equal("/checkout/success"))
		Expect(success.Query().Get("plan")).To(Equal("pro"))
	})

	It("omits an empty customer email", func() {
		params := server.BuildCheckoutParams(server.CheckoutRequest{PriceID: "p", PlanID: "bas"})
		Expect(params.CustomerEmail).To(BeNil())
	})

	It("needs a secret key", func() {
		_, err := server.NewStripeCheckout("")
		Expect(err).To(MatchError(server.ErrBillingDisabled))
	})
})
