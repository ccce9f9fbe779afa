// Package postgres persists registry snapshots. The memory core remains the
// source of truth; this store serializes the dense lists (position order is
// the index) so a restart can pick up where the last snapshot left off.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onsd/internal/registry/models"
	"onsd/pkg/domain"
)

// Store writes and reads full-registry snapshots in one transaction each.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS gs1_codes (
	pos  integer PRIMARY KEY,
	key  text NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS ons_records (
	pos          integer PRIMARY KEY,
	key          text NOT NULL UNIQUE,
	gs1_code     text NOT NULL REFERENCES gs1_codes(key),
	service_type text NOT NULL,
	flags        smallint NOT NULL,
	pattern      text NOT NULL
);
CREATE TABLE IF NOT EXISTS gs1_code_children (
	gs1_code   text NOT NULL REFERENCES gs1_codes(key),
	pos        integer NOT NULL,
	record_key text NOT NULL REFERENCES ons_records(key),
	PRIMARY KEY (gs1_code, pos)
);
CREATE TABLE IF NOT EXISTS service_types (
	pos          integer PRIMARY KEY,
	key          text NOT NULL UNIQUE,
	abstract     boolean NOT NULL,
	extends      text NOT NULL DEFAULT '',
	wsdl_uri     text NOT NULL DEFAULT '',
	homepage_uri text NOT NULL DEFAULT '',
	docs         jsonb NOT NULL DEFAULT '{}'::jsonb,
	obsoletes    text[] NOT NULL DEFAULT '{}',
	obsoleted_by text[] NOT NULL DEFAULT '{}'
);`

// Migrate creates the snapshot tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate snapshot schema: %w", err)
	}
	return nil
}

// Save replaces the persisted snapshot. The deletes and inserts share one
// transaction, so readers never observe a half-written snapshot.
func (s *Store) Save(ctx context.Context, snap models.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Child rows reference records reference codes; clear in FK order.
	for _, table := range []string{"gs1_code_children", "ons_records", "service_types", "gs1_codes"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	for pos, key := range snap.Codes {
		batch.Queue("INSERT INTO gs1_codes (pos, key) VALUES ($1, $2)", pos, key.String())
	}
	for pos, rec := range snap.Records {
		batch.Queue(
			"INSERT INTO ons_records (pos, key, gs1_code, service_type, flags, pattern) VALUES ($1, $2, $3, $4, $5, $6)",
			pos, rec.Key.String(), rec.GS1Code.String(), rec.ServiceType.String(), int16(rec.Flags), rec.Pattern,
		)
	}
	for code, children := range snap.Children {
		for pos, key := range children {
			batch.Queue(
				"INSERT INTO gs1_code_children (gs1_code, pos, record_key) VALUES ($1, $2, $3)",
				code.String(), pos, key.String(),
			)
		}
	}
	for pos, st := range snap.Services {
		batch.Queue(
			`INSERT INTO service_types (pos, key, abstract, extends, wsdl_uri, homepage_uri, docs, obsoletes, obsoleted_by)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			pos, st.Key.String(), st.Abstract, st.Extends.String(), st.WSDLURI, st.HomepageURI,
			docsToMap(st.Docs), keysToStrings(st.Obsoletes), keysToStrings(st.ObsoletedBy),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write snapshot rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the persisted snapshot. An empty database yields an empty
// snapshot, not an error.
func (s *Store) Load(ctx context.Context) (models.Snapshot, error) {
	snap := models.Snapshot{Children: make(map[domain.CodeKey][]domain.RecordKey)}

	rows, err := s.pool.Query(ctx, "SELECT key FROM gs1_codes ORDER BY pos")
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load gs1 codes: %w", err)
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return models.Snapshot{}, fmt.Errorf("scan gs1 code: %w", err)
		}
		snap.Codes = append(snap.Codes, domain.CodeKey(key))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("load gs1 codes: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		"SELECT key, gs1_code, service_type, flags, pattern FROM ons_records ORDER BY pos")
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load ons records: %w", err)
	}
	for rows.Next() {
		var (
			key, code, svc, pattern string
			flags                   int16
		)
		if err := rows.Scan(&key, &code, &svc, &flags, &pattern); err != nil {
			rows.Close()
			return models.Snapshot{}, fmt.Errorf("scan ons record: %w", err)
		}
		snap.Records = append(snap.Records, models.ONSRecord{
			Key:         domain.RecordKey(key),
			GS1Code:     domain.CodeKey(code),
			ServiceType: domain.ServiceKey(svc),
			Flags:       models.RecordFlags(flags),
			Pattern:     pattern,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("load ons records: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		"SELECT gs1_code, record_key FROM gs1_code_children ORDER BY gs1_code, pos")
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load child sets: %w", err)
	}
	for rows.Next() {
		var code, key string
		if err := rows.Scan(&code, &key); err != nil {
			rows.Close()
			return models.Snapshot{}, fmt.Errorf("scan child link: %w", err)
		}
		ck := domain.CodeKey(code)
		snap.Children[ck] = append(snap.Children[ck], domain.RecordKey(key))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("load child sets: %w", err)
	}
	// Codes without records still own an (empty) child set.
	for _, code := range snap.Codes {
		if _, ok := snap.Children[code]; !ok {
			snap.Children[code] = nil
		}
	}

	rows, err = s.pool.Query(ctx,
		"SELECT key, abstract, extends, wsdl_uri, homepage_uri, docs, obsoletes, obsoleted_by FROM service_types ORDER BY pos")
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load service types: %w", err)
	}
	for rows.Next() {
		var (
			key, extends, wsdl, homepage string
			abstract                     bool
			docs                         map[string]string
			obsoletes, obsoletedBy       []string
		)
		if err := rows.Scan(&key, &abstract, &extends, &wsdl, &homepage, &docs, &obsoletes, &obsoletedBy); err != nil {
			rows.Close()
			return models.Snapshot{}, fmt.Errorf("scan service type: %w", err)
		}
		snap.Services = append(snap.Services, models.ServiceType{
			Key:         domain.ServiceKey(key),
			Abstract:    abstract,
			Extends:     domain.ServiceKey(extends),
			WSDLURI:     wsdl,
			HomepageURI: homepage,
			Docs:        docsFromMap(docs),
			Obsoletes:   stringsToKeys(obsoletes),
			ObsoletedBy: stringsToKeys(obsoletedBy),
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("load service types: %w", err)
	}

	return snap, nil
}

func docsToMap(docs map[domain.LanguageCode]string) map[string]string {
	out := make(map[string]string, len(docs))
	for lang, loc := range docs {
		out[string(lang)] = loc
	}
	return out
}

func docsFromMap(raw map[string]string) map[domain.LanguageCode]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[domain.LanguageCode]string, len(raw))
	for lang, loc := range raw {
		out[domain.LanguageCode(lang)] = loc
	}
	return out
}

func keysToStrings(keys []domain.ServiceKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func stringsToKeys(raw []string) []domain.ServiceKey {
	if len(raw) == 0 {
		return nil
	}
	out := make([]domain.ServiceKey, len(raw))
	for i, s := range raw {
		out[i] = domain.ServiceKey(s)
	}
	return out
}
