// Package protocol defines the JSON messages exchanged with the acoustic
// scoring service over NATS.
package protocol

// SubjectScore is the default request subject of the scoring service.
const SubjectScore = "asr.acoustic.score"

// ScoreRequest carries a batch of spectrograms. Features are row-major
// [batch, 1, n_feats, time] float32 values.
type ScoreRequest struct {
	RequestID string    `json:"request_id"`
	Shape     []int     `json:"shape"`
	Features  []float32 `json:"features"`
}

// ScoreResponse carries per-frame class logits, row-major
// [batch, frames, n_class]. Error is set instead when scoring failed.
type ScoreResponse struct {
	RequestID string    `json:"request_id"`
	Shape     []int     `json:"shape,omitempty"`
	Logits    []float32 `json:"logits,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NumElements returns the element count implied by Shape.
func (r ScoreRequest) NumElements() int {
	if len(r.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range r.Shape {
		n *= d
	}
	return n
}
