package main

import (
	"context"

	"github.com/koustreak/datrigen/internal/config"
	"github.com/koustreak/datrigen/internal/database"
	"github.com/koustreak/datrigen/internal/database/mysql"
	"github.com/koustreak/datrigen/internal/database/postgres"
	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/metaclient"
	"github.com/koustreak/datrigen/internal/schema"
	"github.com/koustreak/datrigen/internal/transport"
)

// source is an opened metadata source. db is set for database sources and
// client for the http source.
type source struct {
	reader schema.Reader
	db     database.DB
	client *transport.Client
}

func (s *source) Close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.client != nil {
		_ = s.client.Close()
	}
}

// openSource connects to the configured metadata source.
func (a *app) openSource(ctx context.Context) (*source, error) {
	switch a.cfg.Source.Kind {
	case config.SourceHTTP:
		tc, err := transport.New(a.cfg.Transport(), transport.WithLogger(a.log.Component("transport")))
		if err != nil {
			return nil, err
		}
		return &source{reader: metaclient.New(tc), client: tc}, nil

	case config.SourcePostgres:
		db, err := postgres.New(ctx, a.cfg.DatabaseConfig())
		if err != nil {
			return nil, err
		}
		return &source{reader: postgres.NewIntrospector(db), db: db}, nil

	case config.SourceMySQL:
		db, err := mysql.New(ctx, a.cfg.DatabaseConfig())
		if err != nil {
			return nil, err
		}
		return &source{reader: mysql.NewIntrospector(db), db: db}, nil

	case config.SourceFile:
		schemas, err := schema.LoadFile(a.cfg.Source.File)
		if err != nil {
			return nil, err
		}
		return &source{reader: schema.NewStaticReader(schemas...)}, nil
	}
	return nil, errs.New(errs.ErrKindInvalidInput, "unknown source.kind: "+string(a.cfg.Source.Kind))
}

// fetch reads the configured schemas, or every schema when none are named.
func (a *app) fetch(ctx context.Context, src *source) ([]*schema.SchemaInfo, error) {
	return metaclient.FetchAll(ctx, src.reader, a.cfg.Source.Schemas, metaclient.DefaultConcurrency)
}
