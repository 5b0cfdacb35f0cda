package metrics

import (
	"sort"
	"strings"
	"sync"
)

// MemoryRecorder keeps counters in process memory. Labels are folded into
// the counter key so tests can assert on exact series.
type MemoryRecorder struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counters: make(map[string]int64)}
}

func (r *MemoryRecorder) Increment(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[seriesKey(name, labels)]++
}

func (r *MemoryRecorder) Count(name string, labels map[string]string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[seriesKey(name, labels)]
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(labels[k])
	}
	return b.String()
}
