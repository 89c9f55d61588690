package inference

import (
	"context"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
)

// Memo remembers recent predictions. The model is read-only for the life of
// the process, so identical rows always map to the same price. Failed
// predictions are not remembered.
type Memo struct {
	next  Predictor
	cache *lru.Cache[uint64, float64]
}

var _ Predictor = (*Memo)(nil)

// NewMemo wraps next; size <= 0 returns next unchanged.
func NewMemo(next Predictor, size int) Predictor {
	if size <= 0 {
		return next
	}
	c, _ := lru.New[uint64, float64](size)
	return &Memo{next: next, cache: c}
}

func (m *Memo) Predict(ctx context.Context, row model.FeatureRow) (float64, error) {
	b, err := encodeRow(row)
	if err != nil {
		return m.next.Predict(ctx, row)
	}
	key := xxhash.Sum64(b)
	if p, ok := m.cache.Get(key); ok {
		observability.IncMemoHit()
		return p, nil
	}
	observability.IncMemoMiss()

	p, err := m.next.Predict(ctx, row)
	if err != nil {
		return 0, err
	}
	m.cache.Add(key, p)
	return p, nil
}

func (m *Memo) Len() int { return m.cache.Len() }
