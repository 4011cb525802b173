package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rebeliceyang/lazygrid/internal/config"
	"github.com/rebeliceyang/lazygrid/internal/credentials"
	"github.com/rebeliceyang/lazygrid/internal/loader"
	"github.com/rebeliceyang/lazygrid/internal/models"
	"github.com/rebeliceyang/lazygrid/internal/provider/postgres"
	"github.com/rebeliceyang/lazygrid/internal/provider/rest"
	"github.com/rebeliceyang/lazygrid/internal/provider/sqlite"
)

// gridSource is a row source plus the schema of its records
type gridSource struct {
	schema *models.Schema[models.Record]
	source loader.Source[models.Record]
	close  func()
}

// openSource connects to the configured provider. For local files source is
// a JSON or YAML path, for REST a base URL and for databases a table name.
func openSource(ctx context.Context, cfg config.ProviderConfig, creds *credentials.Store, source string) (*gridSource, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: --source is required", models.ErrNoSource)
	}

	switch cfg.Kind {
	case "local":
		rows, err := readRecords(source)
		if err != nil {
			return nil, err
		}
		return &gridSource{
			schema: models.NewRecordSchema(models.InferColumns(rows)),
			source: loader.Local(rows),
			close:  func() {},
		}, nil

	case "rest":
		baseURL := source
		if cfg.BaseURL != "" && !strings.Contains(source, "://") {
			baseURL = strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(source, "/")
		}
		p := rest.New[models.Record](rest.Options{Timeout: cfg.Timeout(), Header: authHeader(creds, baseURL)})
		// The endpoint carries no column metadata; infer it from a first page
		probe, err := p.FetchPage(ctx, baseURL, models.RequestParameters{Length: 50})
		if err != nil {
			return nil, fmt.Errorf("failed to probe %s: %w", baseURL, err)
		}
		return &gridSource{
			schema: models.NewRecordSchema(models.InferColumns(probe.Data)),
			source: loader.Remote[models.Record](p, baseURL),
			close:  func() {},
		}, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.DSN,
			MaxConns: int32(cfg.MaxConns),
			Password: passwordLookup(creds),
		})
		if err != nil {
			return nil, err
		}
		p := postgres.New(pool, cfg.Timeout())
		schema, err := p.Schema(ctx, source)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &gridSource{
			schema: schema,
			source: loader.Remote[models.Record](p, source),
			close:  pool.Close,
		}, nil

	case "sqlite":
		p, err := sqlite.Open(cfg.DSN, cfg.Timeout())
		if err != nil {
			return nil, err
		}
		schema, err := p.Schema(ctx, source)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		return &gridSource{
			schema: schema,
			source: loader.Remote[models.Record](p, source),
			close:  func() { _ = p.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

// readRecords reads a JSON or YAML array of objects
func readRecords(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rows []models.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rows)
	default:
		err = json.Unmarshal(data, &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}
