package main

import (
	"github.com/aviator-co/adoexport/internal/config"
	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/aviator-co/adoexport/internal/export"
	"github.com/aviator-co/adoexport/internal/ledger"
)

func newClient() (*devops.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return devops.NewClient(
		cfg.APIBaseURL(), cfg.Username, cfg.Password,
		devops.WithTimeout(cfg.Timeout),
		devops.WithUserAgent(config.UserAgent()),
	)
}

func newExporter() (*export.Exporter, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	return export.New(cfg, client)
}

func openLedger() (*ledger.Ledger, error) {
	return ledger.Open(cfg.LedgerPath())
}
