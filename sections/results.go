package sections

import (
	"sync"

	"github.com/aukilabs/sowilo/builder"
)

type buildResult struct {
	section *RenderSection
	frame   int32
	output  *builder.BuildOutput
	err     error
}

// resultList receives build results from the workers. It has many producers
// and one consumer, the frame thread.
type resultList struct {
	mutex   sync.Mutex
	results []buildResult
}

func (l *resultList) push(r buildResult) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.results = append(l.results, r)
}

func (l *resultList) drain() []buildResult {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	results := l.results
	l.results = nil
	return results
}

func (l *resultList) len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.results)
}
