// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

// Solution is an observed hash (spec.md §3). The field is named
// "nounce" on the wire, matching the spelling carried throughout the
// rest of the protocol.
type Solution struct {
	SHA256 string  `json:"sha256"`
	Nounce string  `json:"nounce"`
	Time   float64 `json:"time"`
}

// BestSolution is the pool-wide best solution observed so far (spec.md
// §3).
type BestSolution struct {
	SchemaVersion        int    `json:"schema_version"`
	StudentNumber        string `json:"student_number"`
	JobNumber            uint64 `json:"job_number"`
	LeadingZeroBitLength uint8  `json:"leading_zero_bit_length"`
	Nounce               string `json:"nounce"`
	Hash                 string `json:"hash"`
}

// Application is the pool-wide in-memory state (spec.md §3, C6):
// submitters keyed by student number, the current best solution, and
// the global dedup set of accepted hashes. It is the sole authoritative
// state holder besides the data directory it is backed by.
type Application struct {
	store *Store
	clock Clock

	submitters map[string]*Submitter
	best       *BestSolution
	dedup      map[string]struct{}
}

// NewApplication reconstructs in-memory state from store: it loads
// best.json if present, lists data/submitters/ and loads each
// info.json, and scans hashes.txt once into the in-memory dedup set
// (spec.md §4.5; the dedup set is not part of the literal Rust boot
// sequence but is sanctioned by §9 as a performance-only deviation).
func NewApplication(store *Store, clock Clock) (*Application, error) {
	app := &Application{
		store:      store,
		clock:      clock,
		submitters: make(map[string]*Submitter),
	}

	best, ok, err := store.LoadBest()
	if err != nil {
		return nil, err
	}
	if ok {
		app.best = best
	}

	names, err := store.ListSubmitters()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		sub, ok, err := store.LoadSubmitter(name)
		if err != nil {
			return nil, err
		}
		if ok {
			app.submitters[name] = sub
		}
	}

	dedup, err := store.LoadDedupSet()
	if err != nil {
		return nil, err
	}
	app.dedup = dedup

	log.Infof("loaded %d submitter(s) from %s", len(app.submitters), store.dataDir)
	return app, nil
}

// submitterFrom returns the Submitter for studentNumber, creating and
// persisting a fresh one on first mention (spec.md §3 lifecycle).
func (a *Application) submitterFrom(studentNumber string) (*Submitter, error) {
	if sub, ok := a.submitters[studentNumber]; ok {
		return sub, nil
	}
	sub := newSubmitter(studentNumber)
	if err := a.store.SaveSubmitter(sub); err != nil {
		return nil, err
	}
	a.submitters[studentNumber] = sub
	return sub, nil
}

// hashOutcome reports whether submitHash accepted a newly-seen hash.
type hashOutcome int

const (
	hashAccepted hashOutcome = iota
	hashAlreadyExists
)

// submitHash attempts to insert hash into the dedup set. It returns
// hashAlreadyExists without error if hash was already accepted; it
// appends to the durable dedup log and returns hashAccepted otherwise
// (spec.md §4.4.4 step 3d, §4.5).
func (a *Application) submitHash(hash string) (hashOutcome, error) {
	if _, exists := a.dedup[hash]; exists {
		return hashAlreadyExists, nil
	}
	if err := a.store.AppendHash(hash); err != nil {
		return 0, err
	}
	a.dedup[hash] = struct{}{}
	return hashAccepted, nil
}

// saveBest persists best and makes it the current in-memory best.
func (a *Application) saveBest(best *BestSolution) error {
	if err := a.store.SaveBest(best); err != nil {
		return err
	}
	a.best = best
	return nil
}
