// Package stats tallies procedure counts across the patient
// collection.
package stats

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/perioclinic/perio-records/internal/model"
	"github.com/perioclinic/perio-records/internal/repository"
	"github.com/perioclinic/perio-records/pkg/metrics"
)

// Bucket counts one variant's appointments and procedures. The key
// named after the variant holds the appointment total; every other key
// is a procedure field with its own count.
type Bucket map[string]int

// Tally is the per-variant report, one bucket per variant in
// model.KindOrder.
type Tally []Bucket

// Window optionally bounds a tally. Both ends must be set for the
// bounds to apply, and the comparison excludes the boundary dates
// themselves.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) bounded() bool {
	return !w.From.IsZero() && !w.To.IsZero()
}

func (w Window) contains(d time.Time) bool {
	if !w.bounded() {
		return true
	}
	return d.After(w.From) && d.Before(w.To)
}

// ParseWindow builds a Window from optional YYYYMMDD bounds.
func ParseWindow(from, to string) (Window, error) {
	var w Window
	if from != "" {
		d, err := model.ParseDate(from)
		if err != nil {
			return Window{}, err
		}
		w.From = d
	}
	if to != "" {
		d, err := model.ParseDate(to)
		if err != nil {
			return Window{}, err
		}
		w.To = d
	}
	return w, nil
}

// Service computes tallies over the repository's collection and
// memoizes them until the next mutation or cache expiry.
type Service struct {
	repo    *repository.Repository
	cache   *gocache.Cache
	metrics *metrics.Metrics
}

func NewService(repo *repository.Repository, ttl, cleanup time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		cache:   gocache.New(ttl, cleanup),
		metrics: m,
	}
}

// Tally counts appointments and procedures per variant. With a bounded
// window only appointments strictly inside (from, to) count.
func (s *Service) Tally(ctx context.Context, window Window) Tally {
	key := cacheKey(window)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.TallyCacheHits.Inc()
		return cached.(Tally).clone()
	}

	start := time.Now()
	tally := s.compute(window)
	s.cache.Set(key, tally.clone(), gocache.DefaultExpiration)

	s.metrics.TallyRuns.Inc()
	s.metrics.TallyLatency.Observe(time.Since(start).Seconds())
	log.Debug().Str("window", key).Msg("tally computed")
	return tally
}

// Invalidate drops every cached tally. The mutation service calls this
// after each write.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

func (s *Service) compute(window Window) Tally {
	buckets := make(map[model.Kind]Bucket, len(model.KindOrder))
	tally := make(Tally, 0, len(model.KindOrder))
	for _, kind := range model.KindOrder {
		b := Bucket{string(kind): 0}
		buckets[kind] = b
		tally = append(tally, b)
	}

	for _, p := range s.repo.Patients() {
		for _, appt := range p.Appointments {
			if !window.contains(appt.When()) {
				continue
			}
			bucket := buckets[appt.Kind()]
			bucket[string(appt.Kind())]++
			for field := range model.StatsRecord(appt) {
				if field == model.FieldType || field == model.FieldDate {
					continue
				}
				bucket[field]++
			}
		}
	}
	return tally
}

func (t Tally) clone() Tally {
	out := make(Tally, len(t))
	for i, b := range t {
		nb := make(Bucket, len(b))
		for k, v := range b {
			nb[k] = v
		}
		out[i] = nb
	}
	return out
}

func cacheKey(w Window) string {
	if !w.bounded() {
		return "all"
	}
	return model.FormatDate(w.From) + ":" + model.FormatDate(w.To)
}
