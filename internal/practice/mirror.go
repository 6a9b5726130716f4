package practice

import (
	"context"

	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/store"
)

// Mirror saves each record to Primary and then copies it to every entry of
// Copies. Only Primary decides whether the record counts as saved; copy
// failures are logged.
type Mirror struct {
	Primary Persister
	Copies  []Persister
	Logger  *zap.Logger
}

func (m Mirror) SavePractice(ctx context.Context, rec store.PracticeRecord) error {
	if err := m.Primary.SavePractice(ctx, rec); err != nil {
		return err
	}
	for _, c := range m.Copies {
		if err := c.SavePractice(ctx, rec); err != nil && m.Logger != nil {
			m.Logger.Warn("practice record copy failed", zap.String("insight", rec.InsightID), zap.Error(err))
		}
	}
	return nil
}
