package api

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/snake-desktop/render"
	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeSender struct {
	mu   sync.Mutex
	dirs []structs.Direction
	full bool
}

func (f *fakeSender) Send(d structs.Direction) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.dirs = append(f.dirs, d)
	return true
}

var layout = render.Layout{TileSize: 8, GridSize: 25}

func testSnapshot(state structs.State) structs.Snapshot {
	return structs.Snapshot{
		Session:  "s1",
		Tick:     4,
		GridSize: 25,
		Body:     []structs.Cell{{X: 3, Y: 3}, {X: 2, Y: 3}},
		Food:     structs.Cell{X: 7, Y: 7},
		Score:    1,
		State:    state,
	}
}

func createServer(t *testing.T, opts Options) (*Server, *fakeSender) {
	t.Helper()
	raster, err := render.NewRasterizer()
	require.NoError(t, err)
	s := New(raster, nil, opts)
	sender := &fakeSender{}
	s.Bind(sender)
	snap := testSnapshot(structs.StateRunning)
	s.Present(render.Describe(snap, layout), snap)
	return s, sender
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", target, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestUpdateDirection(t *testing.T) {
	s, sender := createServer(t, Options{})

	rr := get(s, "/update-direction?direction=up")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []structs.Direction{structs.Up}, sender.dirs)

	rr = get(s, "/update-direction?direction=LEFT")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, structs.Left, sender.dirs[1])
}

func TestUpdateDirectionRejectsBadInput(t *testing.T) {
	s, sender := createServer(t, Options{})

	require.Equal(t, http.StatusBadRequest, get(s, "/update-direction").Code)
	rr := get(s, "/update-direction?direction=sideways")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "sideways")
	require.Empty(t, sender.dirs)
}

func TestUpdateDirectionQueueFull(t *testing.T) {
	s, sender := createServer(t, Options{})
	sender.full = true
	require.Equal(t, http.StatusServiceUnavailable, get(s, "/update-direction?direction=down").Code)
}

func TestUpdateDirectionRateLimited(t *testing.T) {
	s, _ := createServer(t, Options{InputRPS: 2})
	require.Equal(t, http.StatusOK, get(s, "/update-direction?direction=down").Code)
	require.Equal(t, http.StatusOK, get(s, "/update-direction?direction=down").Code)
	require.Equal(t, http.StatusTooManyRequests, get(s, "/update-direction?direction=down").Code)
}

func TestState(t *testing.T) {
	s, _ := createServer(t, Options{})
	rr := get(s, "/state")
	require.Equal(t, http.StatusOK, rr.Code)

	var snap structs.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.Equal(t, testSnapshot(structs.StateRunning), snap)
}

func TestRenderMap(t *testing.T) {
	s, _ := createServer(t, Options{})
	rr := get(s, "/render-map")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	img, err := png.Decode(rr.Body)
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())

	first := s.pngCache
	get(s, "/render-map")
	require.True(t, &first[0] == &s.pngCache[0], "unchanged frame must reuse the cached encoding")
}

func TestRenderMapBeforeFirstFrame(t *testing.T) {
	raster, err := render.NewRasterizer()
	require.NoError(t, err)
	s := New(raster, nil, Options{})
	require.Equal(t, http.StatusInternalServerError, get(s, "/render-map").Code)
}

func TestAcknowledge(t *testing.T) {
	s, _ := createServer(t, Options{})
	require.Equal(t, http.StatusConflict, get(s, "/acknowledge").Code)

	done := make(chan error, 1)
	go func() { done <- s.AnnounceFinalScore(context.Background(), testSnapshot(structs.StateEnded)) }()

	require.Eventually(t, func() bool {
		return get(s, "/acknowledge").Code == http.StatusOK
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, <-done)
}

func TestAnnounceCancelled(t *testing.T) {
	s, _ := createServer(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, s.AnnounceFinalScore(ctx, testSnapshot(structs.StateEnded)))
}

func TestMetricsMounted(t *testing.T) {
	s, _ := createServer(t, Options{Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("snake_score 1\n"))
	})})
	rr := get(s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "snake_score 1\n", rr.Body.String())
}

func TestStream(t *testing.T) {
	s, _ := createServer(t, Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "frame", ev.Type)
	require.Equal(t, 4, ev.Snapshot.Tick)

	next := testSnapshot(structs.StateRunning)
	next.Tick = 5
	s.Present(render.Describe(next, layout), next)
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, 5, ev.Snapshot.Tick)

	go s.AnnounceFinalScore(context.Background(), testSnapshot(structs.StateEnded))
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "game_over", ev.Type)
	require.Equal(t, render.FinalScoreMessage(1), ev.Message)
	require.Equal(t, http.StatusOK, get(s, "/acknowledge").Code)
}
