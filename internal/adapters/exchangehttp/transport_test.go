package exchangehttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeGate/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...ports.Fields) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...ports.Fields)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...ports.Fields)  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...ports.Fields) {
}

var _ ports.OrderTransport = (*Transport)(nil)

func newTransport(t *testing.T, handler http.HandlerFunc) *Transport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tr, err := New(Config{OrderURL: srv.URL + "/exchange", Logger: &mockLogger{}, Headers: map[string]string{"X-Api-Key": "k"}})
	require.NoError(t, err)
	return tr
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{OrderURL: "https://example.com"})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = New(Config{OrderURL: "ftp://example.com", Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestSubmitPostsPayload(t *testing.T) {
	var gotBody, gotKey, gotType, gotPath string
	tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("X-Api-Key")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	reply, err := tr.Submit(context.Background(), []byte(`{"symbol":"ETH"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"status":"ok"}`, string(reply))
	assert.Equal(t, `{"symbol":"ETH"}`, gotBody)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "/exchange", gotPath)
}

func TestSubmitReturnsErrorBodiesForClassification(t *testing.T) {
	tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"err","response":"Invalid order size"}`))
	})

	reply, err := tr.Submit(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Contains(t, string(reply), "Invalid order size")
}

func TestSubmitStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ports.ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ports.ErrAuthenticationFailed},
		{"bad gateway without body", http.StatusBadGateway, ports.ErrExchangeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			reply, err := tr.Submit(context.Background(), []byte(`{}`))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, reply)
		})
	}
}

func TestSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	tr := newTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.Submit(ctx, []byte(`{}`))
	assert.ErrorIs(t, err, ports.ErrTimeout)
}

func TestSubmitConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr, err := New(Config{OrderURL: url, Logger: &mockLogger{}})
	require.NoError(t, err)

	_, err = tr.Submit(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}
