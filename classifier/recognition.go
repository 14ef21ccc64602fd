package classifier

import "fmt"

// Recognition is a label whose confidence passed the threshold.
type Recognition struct {
	// Label is the class name from the label file.
	Label string `json:"label" yaml:"label"`
	// Score is the normalized confidence in [0, 1].
	Score float32 `json:"score" yaml:"score"`
}

func (r Recognition) String() string {
	return fmt.Sprintf("%.2f %s", r.Score, r.Label)
}
