package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/gqlcompose"
	"github.com/syssam/gqlcompose/compiler"
)

// project is a loaded gqlcompose.yml together with its open node store.
type project struct {
	cfg     *compiler.ProjectConfig
	store   gqlcompose.NodeStore
	builder *compiler.Builder
	log     *slog.Logger
	close   func() error
}

func openProject(ctx context.Context, opts ...compiler.Option) (*project, error) {
	log := logger()
	cfg, err := compiler.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	base, err := cfg.Options(store)
	if err != nil {
		return nil, joinClose(err, closeStore)
	}
	b, err := compiler.New(append(append(base, compiler.WithLogger(log)), opts...)...)
	if err != nil {
		return nil, joinClose(err, closeStore)
	}
	return &project{cfg: cfg, store: store, builder: b, log: log, close: closeStore}, nil
}

func (p *project) build(ctx context.Context) (*compiler.Schema, error) {
	defs, err := p.cfg.LoadTypeDefs()
	if err != nil {
		return nil, err
	}
	return p.builder.Build(ctx, defs)
}

func joinClose(err error, closeFn func() error) error {
	if cerr := closeFn(); cerr != nil {
		return fmt.Errorf("%w (close: %v)", err, cerr)
	}
	return err
}

// output writes data to path, or to stdout when path is empty or "-".
func output(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
