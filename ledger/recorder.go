/*
recorder.go - Idempotent capture of producer movements

PURPOSE:
  Producers (sell-in feeds, manual adjustments) hand the recorder pre-built
  entries. The recorder appends each one and treats a uniqueness-tuple
  collision as "already captured", not as a failure, so feeds can be
  replayed end to end after a crash.

  Posting paths do NOT go through the recorder: a duplicate during batch
  posting is a hard error (see sellout.Poster), because it means the batch
  was partially posted by someone else.
*/
package ledger

import "context"

// RecordTally summarizes one capture run.
type RecordTally struct {
	Created int
	Skipped int
}

type Recorder struct {
	Store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{Store: store}
}

// Record appends entries one by one, counting duplicates as skips.
// Any other error aborts the run; entries appended so far stay appended
// (a rerun skips them).
func (r *Recorder) Record(ctx context.Context, entries []Entry) (RecordTally, error) {
	var tally RecordTally
	for _, e := range entries {
		err := r.Store.Append(ctx, e)
		switch {
		case err == nil:
			tally.Created++
		case IsDuplicate(err):
			tally.Skipped++
		default:
			return tally, err
		}
	}
	return tally, nil
}
