// Package metrics exposes Prometheus counters for game activity and
// implements game.Observer so engines report into them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robalobadob/numguess/internal/game"
)

// Metrics owns a private registry and the game counters.
type Metrics struct {
	registry *prometheus.Registry

	gamesStarted *prometheus.CounterVec
	gamesEnded   *prometheus.CounterVec
	points       *prometheus.CounterVec
	guesses      *prometheus.CounterVec
	hints        *prometheus.CounterVec
	rejections   *prometheus.CounterVec
}

// New registers Go/process collectors and the game counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "numguess_games_started_total",
			Help: "Games started, by difficulty.",
		}, []string{"difficulty"}),
		gamesEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "numguess_games_finished_total",
			Help: "Games finished, by difficulty and outcome.",
		}, []string{"difficulty", "outcome"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "numguess_points_awarded_total",
			Help: "Points awarded on wins, by difficulty.",
		}, []string{"difficulty"}),
		guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "numguess_guesses_total",
			Help: "Accepted guesses, by difficulty.",
		}, []string{"difficulty"}),
		hints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "numguess_hints_total",
			Help: "Hints given, by difficulty.",
		}, []string{"difficulty"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "numguess_rejections_total",
			Help: "Rejected inputs, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gamesStarted, m.gamesEnded, m.points, m.guesses, m.hints, m.rejections,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) GameStarted(d game.Difficulty) {
	m.gamesStarted.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) GuessAccepted(d game.Difficulty) {
	m.guesses.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) HintGiven(d game.Difficulty) {
	m.hints.WithLabelValues(string(d)).Inc()
}

func (m *Metrics) GameFinished(d game.Difficulty, o game.Outcome, points int) {
	m.gamesEnded.WithLabelValues(string(d), string(o)).Inc()
	if points > 0 {
		m.points.WithLabelValues(string(d)).Add(float64(points))
	}
}

func (m *Metrics) Rejected(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

var _ game.Observer = (*Metrics)(nil)
