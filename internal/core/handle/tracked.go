package handle

import (
	"sort"

	"go.uber.org/zap"
)

// Tracked decorates a Store with the set of handles it has issued and not yet
// destroyed. It exists for leak reports at shutdown and is switched on by the
// debug_handles config flags.
type Tracked[T any] struct {
	Store[T]
	name   string
	active map[Strong[T]]struct{}
}

// NewTracked wraps store. name labels the leak report.
func NewTracked[T any](name string, store Store[T]) *Tracked[T] {
	return &Tracked[T]{
		Store:  store,
		name:   name,
		active: make(map[Strong[T]]struct{}),
	}
}

func (t *Tracked[T]) Insert(v T) (Strong[T], error) {
	h, err := t.Store.Insert(v)
	if err == nil {
		t.active[h] = struct{}{}
	}
	return h, err
}

func (t *Tracked[T]) Destroy(h Strong[T]) bool {
	if !t.Store.Destroy(h) {
		return false
	}
	delete(t.active, h)
	return true
}

// Active returns how many issued handles are still live.
func (t *Tracked[T]) Active() int { return len(t.active) }

// Leaked returns the live handles sorted by index.
func (t *Tracked[T]) Leaked() []Strong[T] {
	out := make([]Strong[T], 0, len(t.active))
	for h := range t.active {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out
}

// ReportLeaks logs every live handle. It returns the number reported.
func (t *Tracked[T]) ReportLeaks(log *zap.Logger) int {
	leaked := t.Leaked()
	for _, h := range leaked {
		log.Warn("handle leaked",
			zap.String("store", t.name),
			zap.Uint32("index", h.Index()),
			zap.Uint32("generation", h.Generation()))
	}
	return len(leaked)
}

// LeakReporter is implemented by stores that can report leaked handles.
type LeakReporter interface {
	ReportLeaks(log *zap.Logger) int
}
