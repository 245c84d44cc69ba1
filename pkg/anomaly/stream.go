package anomaly

import (
	"context"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// Scored is a streamed record with its decision. Err is set when the record could not
// be scored, for example because its columns differ from the trained layout.
type Scored struct {
	Record logs.Record
	Score  detectors.Score
	Err    error
}

// PredictStream scores records from input one at a time until input is closed or ctx is
// done.
func (a *Artifact) PredictStream(ctx context.Context, input <-chan logs.Record, output chan<- Scored) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record, ok := <-input:
			if !ok {
				return nil
			}

			result := Scored{Record: record}
			scores, err := a.Score([]logs.Record{record})
			if err != nil {
				result.Err = err
			} else {
				result.Score = scores[0]
			}

			select {
			case output <- result:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
