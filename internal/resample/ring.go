package resample

import "github.com/bnema/lagmon/internal/event"

// sampleRing keeps the last two raw samples observed for the current device
// stream. Two samples are enough for every calculation here and keep the
// bookkeeping trivial.
type sampleRing struct {
	samples [2]event.Sample
	n       int
}

func (r *sampleRing) pushBack(s event.Sample) {
	if r.n < len(r.samples) {
		r.samples[r.n] = s
		r.n++
		return
	}
	r.samples[0] = r.samples[1]
	r.samples[1] = s
}

// front returns the oldest retained sample. Callers check size first.
func (r *sampleRing) front() *event.Sample {
	return &r.samples[0]
}

// back returns the newest retained sample. Callers check size first.
func (r *sampleRing) back() *event.Sample {
	return &r.samples[r.n-1]
}

func (r *sampleRing) size() int {
	return r.n
}

func (r *sampleRing) clear() {
	r.n = 0
}
