// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package classify

import (
	"sort"
	"sync"
)

// 📊 KeyStats aggregates the files sorted into one key
type KeyStats struct {
	Key   string
	Count int64
	Size  int64
}

// 📊 Tally accumulates KeyStats over a run
type Tally struct {
	mu   sync.Mutex
	keys map[string]*KeyStats
}

// NewTally creates an empty tally
func NewTally() *Tally {
	return &Tally{keys: make(map[string]*KeyStats)}
}

// Add records one file of the given size under key
func (t *Tally) Add(key string, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.keys[key]
	if !ok {
		st = &KeyStats{Key: key}
		t.keys[key] = st
	}
	st.Count++
	st.Size += size
}

// Stats returns the per-key stats, largest count first, then by key
func (t *Tally) Stats() []KeyStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]KeyStats, 0, len(t.keys))
	for _, st := range t.keys {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
