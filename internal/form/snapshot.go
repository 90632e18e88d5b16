package form

import (
	"fmt"

	"portal/internal/model"

	"github.com/vmihailenco/msgpack"
)

// Snapshot is the serialisable state of a form, kept by the draft store
// between requests.
type Snapshot struct {
	OpportunityID string        `msgpack:"opportunity_id"`
	Status        model.Status  `msgpack:"status"`
	Values        Values        `msgpack:"values"`
	Baseline      Values        `msgpack:"baseline"`
	Actor         model.Profile `msgpack:"actor"`
	Institutional string        `msgpack:"institutional"`
}

func (f *Form) Snapshot() Snapshot {
	return Snapshot{
		OpportunityID: f.opportunityID,
		Status:        f.status,
		Values:        f.values.clone(),
		Baseline:      f.baseline.clone(),
		Actor:         f.actor,
		Institutional: f.institutionalCompanyID,
	}
}

// Restore rebuilds a form from a snapshot.
func Restore(s Snapshot) *Form {
	return &Form{
		opportunityID:          s.OpportunityID,
		status:                 s.Status,
		values:                 s.Values.clone(),
		baseline:               s.Baseline.clone(),
		actor:                  s.Actor,
		institutionalCompanyID: s.Institutional,
	}
}

// Encode packs the snapshot with msgpack.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("encode form snapshot: %w", err)
	}
	return data, nil
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode form snapshot: %w", err)
	}
	return s, nil
}
