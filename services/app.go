package services

import (
	"cashier/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires the core components around one database handle.
type App struct {
	Gate    *Gate
	Ledger  *Ledger
	Intake  *Intake
	Proofs  *Proofs
	Review  *Review
	Fanout  *Fanout
	Listing *Listing
	Inbox   *Inbox
}

type Options struct {
	Limits            config.Limits
	Fanout            FanoutOptions
	ProofStore        ProofStore
	ProofMaxBytes     int64
	ProofMaxDimension int
}

func New(db *gorm.DB, opts Options, log *zap.Logger) *App {
	fanout := NewFanout(db, opts.Fanout, log.Named("fanout"))
	ledger := NewLedger(db, fanout, log.Named("ledger"))
	return &App{
		Gate:    NewGate(db),
		Ledger:  ledger,
		Intake:  NewIntake(db, opts.Limits, log.Named("intake")),
		Proofs:  NewProofs(db, opts.ProofStore, opts.ProofMaxBytes, opts.ProofMaxDimension, log.Named("proofs")),
		Review:  NewReview(db, ledger, fanout, log.Named("review")),
		Fanout:  fanout,
		Listing: NewListing(db),
		Inbox:   NewInbox(db),
	}
}
