// Package log provides the structured logger used across walletauth.
//
// Components accept a Logger and never write through fmt or the standard
// library log package. NewZapLogger builds the production implementation;
// NewNoopLogger is the default when nothing is configured.
//
//	lg := log.NewZapLogger(log.Config{Format: "json", Level: log.LevelDebug})
//	lg = lg.WithName("session").WithKV("address", addr)
//	lg.Info("session restored", "chain", "solana")
package log
