package simclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpwan-planner/internal/heatmap"
	"lpwan-planner/internal/linkbudget"
	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

type delivery struct {
	data *heatmap.Data
	err  error
}

func collect(ch chan delivery) DeliverFunc {
	return func(data *heatmap.Data, err error) {
		ch <- delivery{data, err}
	}
}

func resultJSON(rssi float64) string {
	d := heatmap.Data{
		GridShape: [2]int{2, 2},
		RSSIGrid:  [][]float64{{rssi, rssi}, {rssi, rssi}},
	}
	b, _ := json.Marshal(map[string]any{"ok": true, "result": d})
	return string(b)
}

func TestSimulateSuccess(t *testing.T) {
	var gotBody Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/simulate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(resultJSON(-80)))
	}))
	defer srv.Close()

	grid := scene.GridConfig{WidthKm: 5, HeightKm: 5, ResolutionM: 50}
	store := scene.NewStore(grid)
	store.AddDevice(scene.HaLowAP, geometry.Point2D{X: 1, Y: 2}, scene.RFParams{TxPowerDBm: 30, Channel: 2})
	store.CommitObstacle(scene.ObstacleHouse, geometry.NewRect(1, 1, 0.5, 0.5), "")

	req := BuildRequest(grid, store.Devices(), store.Obstacles(), linkbudget.EnvSuburban, 0, false)

	ch := make(chan delivery, 1)
	New(srv.URL, time.Second).Simulate(context.Background(), req, collect(ch))

	got := <-ch
	require.NoError(t, got.err)
	require.NotNil(t, got.data)
	assert.Equal(t, 2, got.data.Rows())
	assert.Equal(t, -80.0, got.data.RSSIGrid[0][0])

	// The wire request carries the flattened device params and the
	// string-keyed obstacle.
	require.Len(t, gotBody.Devices, 1)
	assert.Equal(t, "halow_ap", gotBody.Devices[0].Type)
	assert.Equal(t, 30.0, gotBody.Devices[0].TxPowerDBm)
	require.Len(t, gotBody.Obstacles, 1)
	assert.Equal(t, "house", gotBody.Obstacles[0].Type)
	assert.Equal(t, "house", gotBody.Obstacles[0].Material)
	assert.Equal(t, "suburban", gotBody.Environment)
}

func TestSimulateEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "no transmitters"}`))
	}))
	defer srv.Close()

	ch := make(chan delivery, 1)
	New(srv.URL, time.Second).Simulate(context.Background(), Request{}, collect(ch))

	got := <-ch
	require.Error(t, got.err)
	assert.Contains(t, got.err.Error(), "no transmitters")
	assert.Nil(t, got.data)
}

func TestSimulateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := make(chan delivery, 1)
	New(srv.URL, time.Second).Simulate(context.Background(), Request{}, collect(ch))

	got := <-ch
	require.Error(t, got.err)
	assert.Nil(t, got.data)
}

func TestSimulateMalformedGridRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": true, "result": {"grid_shape": [2, 2], "rssi_grid": [[-80]]}}`))
	}))
	defer srv.Close()

	ch := make(chan delivery, 1)
	New(srv.URL, time.Second).Simulate(context.Background(), Request{}, collect(ch))

	got := <-ch
	require.Error(t, got.err)
	assert.Nil(t, got.data)
}

func TestFailedRequestDoesNotSuppressOlderSuccess(t *testing.T) {
	var calls atomic.Int64
	firstGate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Hold the first request past the second one's failure.
			<-firstGate
			w.Write([]byte(resultJSON(-70)))
			return
		}
		http.Error(w, "engine overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	ch := make(chan delivery, 2)
	c.Simulate(context.Background(), Request{}, collect(ch))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	c.Simulate(context.Background(), Request{}, collect(ch))

	got := <-ch
	require.Error(t, got.err, "the fast failure surfaces first")

	// The error must not have claimed the delivery slot: the older
	// request's grid still lands when it completes.
	close(firstGate)
	got = <-ch
	require.NoError(t, got.err)
	require.NotNil(t, got.data)
	assert.Equal(t, -70.0, got.data.RSSIGrid[0][0])
}

func TestErrorAfterNewerSuccessDiscarded(t *testing.T) {
	var calls atomic.Int64
	firstGate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			<-firstGate
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(resultJSON(-60)))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	ch := make(chan delivery, 2)
	c.Simulate(context.Background(), Request{}, collect(ch))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	c.Simulate(context.Background(), Request{}, collect(ch))

	got := <-ch
	require.NoError(t, got.err)
	assert.Equal(t, -60.0, got.data.RSSIGrid[0][0])

	// An error from a request older than the displayed grid is noise;
	// it must not reach the window.
	close(firstGate)
	select {
	case d := <-ch:
		t.Fatalf("stale error delivered: %+v", d)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	var calls atomic.Int64
	firstGate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Hold the first request until the second has been
			// fully delivered.
			<-firstGate
			w.Write([]byte(resultJSON(-100)))
			return
		}
		w.Write([]byte(resultJSON(-60)))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	ch := make(chan delivery, 2)
	c.Simulate(context.Background(), Request{}, collect(ch))
	// Make sure the first request is in flight before issuing the second.
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	c.Simulate(context.Background(), Request{}, collect(ch))

	got := <-ch
	require.NoError(t, got.err)
	assert.Equal(t, -60.0, got.data.RSSIGrid[0][0], "newer response wins")

	// Release the older response; it must be dropped, not delivered.
	close(firstGate)
	select {
	case d := <-ch:
		t.Fatalf("stale response delivered: %+v", d)
	case <-time.After(300 * time.Millisecond):
	}
}
