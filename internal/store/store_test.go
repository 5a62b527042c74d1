package store

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/binpusher/pkg/models"
)

type recorded struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.reqs...)
}

func newRecordingServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.reqs = append(rec.reqs, recorded{
			Method:      r.Method,
			Path:        r.URL.EscapedPath(),
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		rec.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestPutBinStatus(t *testing.T) {
	srv, reqs := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"houseId":"h1"}`))
	})

	c := New(srv.URL+"/", time.Second)
	status := models.BinStatus{HouseID: "h1", FillLevel: 60, LastUpdated: "2025-01-02T03:04:05.000000", Status: models.StatusPartial}
	require.NoError(t, c.PutBinStatus(context.Background(), status))

	all := reqs.all()
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/binStatuses/h1.json", got.Path)
	assert.Equal(t, "application/json", got.ContentType)
	assert.JSONEq(t, `{"houseId":"h1","fillLevel":60,"lastUpdated":"2025-01-02T03:04:05.000000","status":"partial"}`, string(got.Body))
}

func TestPutBinStatusEscapesID(t *testing.T) {
	srv, reqs := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c := New(srv.URL, time.Second)
	require.NoError(t, c.PutBinStatus(context.Background(), models.BinStatus{HouseID: "a b/c"}))

	got := reqs.all()
	require.Len(t, got, 1)
	assert.Equal(t, "/binStatuses/a%20b%2Fc.json", got[0].Path)
}

func TestPushWasteLogReturnsKey(t *testing.T) {
	srv, reqs := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"-NabcDEF"}`))
	})

	c := New(srv.URL, time.Second)
	entry := models.WasteLogEntry{
		HouseID:      "h1",
		WasteType:    models.WasteOrganic,
		Weight:       1.25,
		Timestamp:    "2025-01-02T03:04:05.000000",
		FillLevel:    60,
		MLConfidence: 91,
	}
	key, err := c.PushWasteLog(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "-NabcDEF", key)

	all := reqs.all()
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/wasteLogs.json", got.Path)

	var sent models.WasteLogEntry
	require.NoError(t, json.Unmarshal(got.Body, &sent))
	assert.Equal(t, entry, sent)
}

func TestPushWasteLogEmptyBody(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	key, err := New(srv.URL, time.Second).PushWasteLog(context.Background(), models.WasteLogEntry{HouseID: "h1"})
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestNon2xxIsStatusError(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Permission denied"}`, http.StatusUnauthorized)
	})

	err := New(srv.URL, time.Second).PutBinStatus(context.Background(), models.BinStatus{HouseID: "h1"})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, http.MethodPut, se.Method)
	assert.Contains(t, se.Body, "Permission denied")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := New(endpoint, time.Second).PushWasteLog(context.Background(), models.WasteLogEntry{HouseID: "h1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request error")
}

func TestSerializationFailure(t *testing.T) {
	srv, reqs := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := New(srv.URL, time.Second).PushWasteLog(context.Background(), models.WasteLogEntry{Weight: math.NaN()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoding payload")
	assert.Empty(t, reqs.all())
}

func TestGetBinStatus(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/binStatuses/h1.json":
			_, _ = w.Write([]byte(`{"houseId":"h1","fillLevel":95,"lastUpdated":"2025-01-02T03:04:05.000000","status":"full"}`))
		default:
			_, _ = w.Write([]byte(`null`))
		}
	})
	c := New(srv.URL, time.Second)

	status, err := c.GetBinStatus(context.Background(), "h1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 95, status.FillLevel)
	assert.Equal(t, models.StatusFull, status.Status)

	missing, err := c.GetBinStatus(context.Background(), "h2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestContextCancelled(t *testing.T) {
	srv, _ := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(srv.URL, time.Second).PutBinStatus(ctx, models.BinStatus{HouseID: "h1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
