package match

// Store owns the canonical set of tracked matches and competitions. All
// mutations are serialized; Snapshot never observes a partial mutation.
type Store interface {
	// Upsert resolves the match identity, stamps the competition id when a
	// competition accompanies it and overwrites the stored record. It reports
	// false when no usable identity could be resolved.
	Upsert(item Match, competition *Competition) (string, bool)
	Remove(id string) bool
	Reconcile(matches []Match, competitions []Competition) ReconcileResult
	MergeRefreshResult(result RefreshResult) MergeOutcome
	Get(id string) (Match, bool)
	Snapshot() Snapshot
	Len() int
}

type ReconcileResult struct {
	Upserted int `json:"upserted"`
	Removed  int `json:"removed"`
	Dropped  int `json:"dropped"`
}

// MergeOutcome reports what a refresh merge did to the stored record.
type MergeOutcome int

const (
	// MergeDiscarded means the match was removed before the result arrived.
	MergeDiscarded MergeOutcome = iota
	// MergeUnchanged means every found field already held the fetched value.
	MergeUnchanged
	MergeApplied
)
