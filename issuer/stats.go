package issuer

import (
	"context"
	"errors"
	"math"

	"github.com/zeptools/certgw/store"
)

type Stats struct {
	store.Stats
	ProgressPercentage int  `json:"progressPercentage"`
	CanGenerate        bool `json:"canGenerate"`
}

func (i *Issuer) Stats(ctx context.Context, eventID int64) (Stats, error) {
	if _, err := i.store.Event(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Stats{}, ErrEventNotFound
		}
		return Stats{}, err
	}
	st, err := i.store.Stats(ctx, eventID)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{Stats: st, CanGenerate: st.TemplateCount > 0 && st.WithoutCertificates > 0}
	if st.TotalParticipants > 0 {
		out.ProgressPercentage = int(math.Round(float64(st.WithCertificates) / float64(st.TotalParticipants) * 100))
	}
	return out, nil
}
