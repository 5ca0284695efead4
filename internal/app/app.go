package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"ndcscan/internal/config"
	"ndcscan/internal/docai"
	"ndcscan/internal/pipeline"
	"ndcscan/internal/rxnorm"
	"ndcscan/internal/server"
	"ndcscan/internal/storage"
)

// OpenDB opens the shared lookup pool described by cfg.
func OpenDB(cfg config.Config, logger *zap.Logger) (*storage.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	dsn := cfg.DBURL
	if cfg.DBDriver == storage.DriverSQLite {
		dsn = cfg.DBPath
	}
	return storage.Open(storage.Options{
		Driver:          cfg.DBDriver,
		DSN:             dsn,
		MySQLHost:       cfg.MySQLHost,
		MySQLPort:       cfg.MySQLPort,
		MySQLUser:       cfg.MySQLUser,
		MySQLPassword:   cfg.MySQLPassword,
		MySQLDatabase:   cfg.MySQLDatabase,
		MaxOpenConns:    cfg.DBMaxConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSec) * time.Second,
	}, logger)
}

func NewTranslator(cfg config.Config, db *storage.DB, logger *zap.Logger) *pipeline.Translator {
	return pipeline.NewTranslator(rxnorm.NewClient(db, logger), pipeline.TranslatorOptions{
		MaxInFlight: cfg.ResolveMaxInFlight,
		Timeout:     time.Duration(cfg.TranslateTimeoutMs) * time.Millisecond,
	}, logger)
}

// RunServer serves the HTTP API until ctx is cancelled, then drains in-flight
// requests and closes the pool.
func RunServer(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := OpenDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	analyzer, err := docai.NewClient(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(analyzer, NewTranslator(cfg, db, logger), db, server.Options{
		MaxBodyBytes:     cfg.MaxBodyBytes,
		MaxPDFPages:      cfg.MaxPDFPages,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.ListenAddr()) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
