package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/shape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testShape(t *testing.T) *shape.Shape {
	t.Helper()
	s, err := shape.Compile([]shape.Field{
		{Key: "overview", Kind: shape.Text, Required: true},
		{Key: "files", Kind: shape.List},
	})
	require.NoError(t, err)
	return s
}

func TestOpenAICompleteSendsChatRequest(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"overview\":\"Auth layer.\",\"files\":[\"a.go\"]}"}}]}`)
	}))
	defer srv.Close()

	client, err := NewOpenAI(Options{Model: "gpt-4", Temperature: 0.1, MaxTokens: 4000, Endpoint: srv.URL + "/v1", APIKey: "sk-test"})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{System: "Summarize.", Content: "# Source Files", Shape: testShape(t)})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4", got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	assert.InDelta(t, 0.1, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Summarize.")
	assert.Contains(t, got.Messages[0].Content, `"overview"`)
	assert.Equal(t, "# Source Files", got.Messages[1].Content)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])

	require.Len(t, out.Sections, 2)
	assert.Equal(t, "Auth layer.", out.Sections[0].Text)
	assert.Equal(t, []string{"a.go"}, out.Sections[1].Items)
}

func TestOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAI(Options{Model: "gpt-4"})
	require.Error(t, err)
	assert.True(t, babarerrors.IsConfig(err))

	_, err = NewOpenAI(Options{Model: "local", Endpoint: "http://127.0.0.1:8080/v1"})
	assert.NoError(t, err, "custom endpoints may run without a key")
}

func TestOpenAIStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Hello", "", " world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		fmt.Fprint(w, ": keep-alive\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	client, err := NewOpenAI(Options{Model: "gpt-4", Endpoint: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	stream, err := client.Stream(context.Background(), Request{Content: "x"})
	require.NoError(t, err)
	text, err := Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestOpenAIStreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
	}))
	defer srv.Close()

	client, err := NewOpenAI(Options{Model: "gpt-4", Endpoint: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	stream, err := client.Stream(context.Background(), Request{Content: "x"})
	require.NoError(t, err)
	text, err := Collect(stream)
	assert.Equal(t, "partial", text)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOpenAIStatusClassification(t *testing.T) {
	status := http.StatusBadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", status)
	}))
	defer srv.Close()

	client, err := NewOpenAI(Options{Model: "gpt-4", Endpoint: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Content: "x"})
	require.Error(t, err)
	assert.True(t, IsPermanent(err), "4xx should be permanent")

	status = http.StatusTooManyRequests
	_, err = client.Complete(context.Background(), Request{Content: "x"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err), "429 should be retryable")

	status = http.StatusBadGateway
	_, err = client.Complete(context.Background(), Request{Content: "x"})
	require.Error(t, err)
	assert.False(t, IsPermanent(err), "5xx should be retryable")
}

func TestOllamaCompleteAndStream(t *testing.T) {
	var bodies []ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		if body.Stream {
			fmt.Fprintln(w, `{"response":"par","done":false}`)
			fmt.Fprintln(w, `{"response":"tial","done":false}`)
			fmt.Fprintln(w, `{"response":"","done":true}`)
			return
		}
		fmt.Fprint(w, `{"response":"A summary.","done":true}`)
	}))
	defer srv.Close()

	client := NewOllama(Options{Endpoint: srv.URL, Temperature: 0.2, MaxTokens: 256})
	assert.Equal(t, "ollama:llama2", client.Name())

	out, err := client.Complete(context.Background(), Request{System: "sys", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "A summary.", out.Text)
	assert.Nil(t, out.Sections)

	stream, err := client.Stream(context.Background(), Request{Content: "body", Shape: testShape(t)})
	require.NoError(t, err)
	text, err := Collect(stream)
	require.NoError(t, err)
	assert.Equal(t, "partial", text)

	require.Len(t, bodies, 2)
	assert.Equal(t, "llama2", bodies[0].Model)
	assert.Equal(t, "sys", bodies[0].System)
	assert.Equal(t, "body", bodies[0].Prompt)
	assert.Empty(t, bodies[0].Format)
	assert.EqualValues(t, 256, bodies[0].Options["num_predict"])
	assert.Equal(t, "json", bodies[1].Format)
}

func TestOllamaStreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"cut","done":false}`)
	}))
	defer srv.Close()

	stream, err := NewOllama(Options{Endpoint: srv.URL}).Stream(context.Background(), Request{Content: "x"})
	require.NoError(t, err)
	text, err := Collect(stream)
	assert.Equal(t, "cut", text)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStreamAbandonedEarlyReleasesTransport(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"first","done":false}`)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	stream, err := NewOllama(Options{Endpoint: srv.URL}).Stream(context.Background(), Request{Content: "x"})
	require.NoError(t, err)
	require.True(t, stream.Next())
	assert.Equal(t, "first", stream.Text())
	require.NoError(t, stream.Close())
	assert.False(t, stream.Next(), "closed stream yields nothing")
	require.NoError(t, stream.Close(), "close is idempotent")
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	inner := &Fake{Respond: func(ctx context.Context, req Request) (string, error) {
		calls.Add(1)
		return "", &PermanentError{Err: errors.New("bad request")}
	}}

	_, err := Retry(inner, 4, time.Millisecond, nil).Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	var calls atomic.Int32
	inner := &Fake{Respond: func(ctx context.Context, req Request) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	}}

	out, err := Retry(inner, 3, time.Millisecond, nil).Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := &Fake{Respond: func(context.Context, Request) (string, error) {
		cancel()
		return "", errors.New("timeout")
	}}

	_, err := Retry(inner, 5, time.Hour, nil).Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeCountsBlocks(t *testing.T) {
	content := "# Source Files\n\nFile: a.go\n\npackage a\n\n---\n\nFile: b.go\n\npackage a\n\n\n# Child Directory Summaries\n\nDirectory: sub\n\nsummary\n\n"
	out, err := (&Fake{}).Complete(context.Background(), Request{Directory: "pkg", Content: content})
	require.NoError(t, err)
	assert.Equal(t, "Directory pkg: 2 source files, 1 child summaries.", out.Text)

	stream, err := (&Fake{}).Stream(context.Background(), Request{Content: content})
	require.NoError(t, err)
	text, err := Collect(stream)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Directory .: 2 source files"))
}

func TestFakeEmptyResponse(t *testing.T) {
	_, err := (&Fake{Respond: func(context.Context, Request) (string, error) { return "  ", nil }}).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewFactory(t *testing.T) {
	s, err := New(context.Background(), Options{Provider: "FAKE"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fake", s.Name())

	s, err = New(context.Background(), Options{Provider: "ollama", Retries: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama:llama2", s.Name())
	_, wrapped := s.(*retrying)
	assert.True(t, wrapped)

	_, err = New(context.Background(), Options{Provider: "acme"}, nil)
	require.Error(t, err)
	assert.True(t, babarerrors.IsConfig(err))
	assert.Contains(t, err.Error(), "fake, gemini, ollama, openai")

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err = New(context.Background(), Options{Provider: "gemini"}, nil)
	assert.True(t, babarerrors.IsConfig(err))
}

func TestSchemaForKeepsDeclaredOrder(t *testing.T) {
	schema := schemaFor(testShape(t))
	assert.Equal(t, []string{"overview", "files"}, schema.PropertyOrdering)
	assert.Equal(t, []string{"overview"}, schema.Required)
	require.NotNil(t, schema.Properties["files"].Items)
}
