package service

import (
	"context"
	"log"

	"gorm.io/gorm"

	"taskflow/internal/config"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// mutation loads, changes and saves one aggregate using tx. It returns the
// transition to log, or nil when nothing needs logging.
type mutation func(tx *gorm.DB) (*model.Transition, error)

// ledger commits an aggregate write together with its log entry according
// to the configured activity log mode.
type ledger struct {
	tx       *repository.Transactor
	activity *ActivityService
	mode     string
}

func newLedger(tx *repository.Transactor, activity *ActivityService, mode string) ledger {
	if mode == "" {
		mode = config.ActivityLogTransactional
	}
	return ledger{tx: tx, activity: activity, mode: mode}
}

func (l ledger) commit(ctx context.Context, fn mutation) error {
	if l.mode == config.ActivityLogBestEffort {
		var pending *model.Transition
		err := l.tx.InTx(ctx, func(tx *gorm.DB) error {
			t, err := fn(tx)
			pending = t
			return err
		})
		if err != nil || pending == nil {
			return err
		}
		if _, err := l.activity.Record(ctx, nil, *pending); err != nil {
			log.Printf("[warn] activity log missing for %s %d (%s by user %d): %v",
				pending.Kind, pending.EntityID, pending.Action, pending.ActorID, err)
		}
		return nil
	}

	return l.tx.InTx(ctx, func(tx *gorm.DB) error {
		t, err := fn(tx)
		if err != nil || t == nil {
			return err
		}
		_, err = l.activity.Record(ctx, tx, *t)
		return err
	})
}
