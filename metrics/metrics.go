package metrics

import (
	"net/http"

	"github.com/hoshinonyaruko/snake-desktop/structs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector turns the snapshot stream into prometheus series.
type Collector struct {
	registry *prometheus.Registry

	ticks     prometheus.Counter
	foodEaten prometheus.Counter
	gamesOver *prometheus.CounterVec
	score     prometheus.Gauge
	length    prometheus.Gauge

	lastSession string
	lastScore   int
	lastTick    int
	lastState   structs.State
}

// New registers the game series on a private registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snake",
			Name:      "ticks_total",
			Help:      "Ticks that moved the snake.",
		}),
		foodEaten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snake",
			Name:      "food_eaten_total",
			Help:      "Food cells eaten.",
		}),
		gamesOver: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snake",
			Name:      "games_ended_total",
			Help:      "Games ended, by outcome.",
		}, []string{"outcome"}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snake",
			Name:      "score",
			Help:      "Score of the current game.",
		}),
		length: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snake",
			Name:      "length",
			Help:      "Length of the snake in the current game.",
		}),
	}
	c.registry.MustRegister(c.ticks, c.foodEaten, c.gamesOver, c.score, c.length)
	return c
}

// Observe is meant to be subscribed to a GameState and runs on its goroutine.
func (c *Collector) Observe(s structs.Snapshot) {
	if s.Session != c.lastSession {
		c.lastSession = s.Session
		c.lastScore = 0
		c.lastTick = 0
		c.lastState = ""
	}

	if s.State == structs.StateEnded && c.lastState != structs.StateEnded {
		c.gamesOver.WithLabelValues(string(s.Outcome)).Inc()
	}
	// direction changes also emit snapshots, only count real moves
	if s.Tick > c.lastTick {
		c.ticks.Add(float64(s.Tick - c.lastTick))
	}
	if s.Score > c.lastScore {
		c.foodEaten.Add(float64(s.Score - c.lastScore))
	}

	c.lastScore = s.Score
	c.lastState = s.State
	c.lastTick = s.Tick
	c.score.Set(float64(s.Score))
	c.length.Set(float64(len(s.Body)))
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
