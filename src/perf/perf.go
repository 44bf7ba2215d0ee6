package perf

import (
	"context"
	"time"
)

type RequestPerf struct {
	Route  string
	Path   string // the path actually matched
	Method string
	Start  time.Time
	End    time.Time
	Blocks []PerfBlock
}

func MakeNewRequestPerf(route string, method string, path string) *RequestPerf {
	return &RequestPerf{
		Start:  time.Now(),
		Route:  route,
		Path:   path,
		Method: method,
	}
}

// A nil *RequestPerf is valid and records nothing, so code outside of
// requests (jobs, commands) can call ExtractPerf unconditionally.

func (rp *RequestPerf) EndRequest() {
	if rp == nil {
		return
	}
	for rp.EndBlock() {
	}
	rp.End = time.Now()
}

func (rp *RequestPerf) StartBlock(category, description string) {
	if rp == nil {
		return
	}
	now := time.Now()
	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       now,
		Category:    category,
		Description: description,
	})
}

func (rp *RequestPerf) EndBlock() bool {
	if rp == nil {
		return false
	}
	for i := len(rp.Blocks) - 1; i >= 0; i -= 1 {
		if rp.Blocks[i].End.IsZero() {
			rp.Blocks[i].End = time.Now()
			return true
		}
	}
	return false
}

func (rp *RequestPerf) MsFromStart(block *PerfBlock) float64 {
	return float64(block.Start.Sub(rp.Start).Nanoseconds()) / 1000 / 1000
}

func (rp *RequestPerf) DurationMs() float64 {
	return float64(rp.End.Sub(rp.Start).Nanoseconds()) / 1000 / 1000
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return float64(pb.Duration().Nanoseconds()) / 1000 / 1000
}

type perfContextKey struct{}

var PerfContextKey = perfContextKey{}

func AttachPerf(ctx context.Context, rp *RequestPerf) context.Context {
	return context.WithValue(ctx, PerfContextKey, rp)
}

func ExtractPerf(ctx context.Context) *RequestPerf {
	if ctx == nil {
		return nil
	}
	rp, _ := ctx.Value(PerfContextKey).(*RequestPerf)
	return rp
}
