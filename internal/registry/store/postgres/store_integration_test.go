//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"onsd/internal/registry/models"
	"onsd/internal/registry/store/memory"
	"onsd/pkg/domain"
	"onsd/pkg/testutil"
	"onsd/pkg/testutil/containers"
)

type PostgresSnapshotSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *Store
}

func TestPostgresSnapshotSuite(t *testing.T) {
	suite.Run(t, new(PostgresSnapshotSuite))
}

func (s *PostgresSnapshotSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = New(s.pg.Pool)
	s.Require().NoError(s.store.Migrate(s.ctx))
}

func (s *PostgresSnapshotSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx))
}

func (s *PostgresSnapshotSuite) seedRegistry() *memory.Store {
	reg := memory.New()
	s.Require().NoError(reg.AddCode(s.ctx, "CODE1"))
	s.Require().NoError(reg.AddCode(s.ctx, "CODE2"))
	s.Require().NoError(reg.AddRecord(s.ctx, models.ONSRecord{
		Key:         "REC1",
		GS1Code:     "CODE1",
		ServiceType: "SVC1",
		Flags:       models.FlagsTerminal,
		Pattern:     `!^.*$!http://example.com/!`,
	}))
	s.Require().NoError(reg.AddRecord(s.ctx, models.ONSRecord{
		Key:         "REC2",
		GS1Code:     "CODE1",
		ServiceType: "SVC1",
		Flags:       models.FlagsNonTerminal,
		Pattern:     `!^.*$!ons://next/!`,
	}))
	s.Require().NoError(reg.AddServiceType(s.ctx, models.ServiceType{
		Key:       "SVC1",
		WSDLURI:   "https://example.com/svc.wsdl",
		Docs:      map[domain.LanguageCode]string{"en": "https://example.com/docs"},
		Obsoletes: []domain.ServiceKey{"OLD1"},
	}))
	return reg
}

func (s *PostgresSnapshotSuite) TestSaveAndLoadRoundTrip() {
	reg := s.seedRegistry()
	s.Require().NoError(s.store.Save(s.ctx, reg.Snapshot(s.ctx)))

	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)

	restored := memory.New()
	s.Require().NoError(restored.Restore(s.ctx, loaded))

	s.Equal(2, restored.CodeCount(s.ctx))
	s.Equal(2, restored.RecordCount(s.ctx))
	s.Equal(1, restored.ServiceTypeCount(s.ctx))

	rec, err := restored.GetRecord(s.ctx, "REC2")
	s.Require().NoError(err)
	s.Equal(domain.CodeKey("CODE1"), rec.GS1Code)
	s.False(rec.Terminal())

	count, err := restored.ChildCount(s.ctx, "CODE1")
	s.Require().NoError(err)
	s.Equal(2, count)

	st, err := restored.GetServiceType(s.ctx, "SVC1")
	s.Require().NoError(err)
	s.Equal("https://example.com/docs", st.DocumentationFor("en"))
	s.Equal([]domain.ServiceKey{"OLD1"}, st.Obsoletes)
}

func (s *PostgresSnapshotSuite) TestChildOrderSurvivesSwapDelete() {
	reg := s.seedRegistry()
	// Swap-delete reorders the child list relative to the record table; the
	// persisted snapshot must carry the post-swap order.
	_, err := reg.DeleteRecord(s.ctx, "REC1")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(s.ctx, reg.Snapshot(s.ctx)))

	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.RecordKey{"REC2"}, loaded.Children["CODE1"])

	restored := memory.New()
	s.Require().NoError(restored.Restore(s.ctx, loaded))
	child, err := restored.ChildAt(s.ctx, "CODE1", 0)
	s.Require().NoError(err)
	s.Equal(domain.RecordKey("REC2"), child)
}

func (s *PostgresSnapshotSuite) TestSaveReplacesPreviousSnapshot() {
	reg := s.seedRegistry()
	s.Require().NoError(s.store.Save(s.ctx, reg.Snapshot(s.ctx)))

	fresh := memory.New()
	s.Require().NoError(fresh.AddCode(s.ctx, "OTHER"))
	s.Require().NoError(s.store.Save(s.ctx, fresh.Snapshot(s.ctx)))

	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.CodeKey{"OTHER"}, loaded.Codes)
	s.Empty(loaded.Records)
	s.Empty(loaded.Services)
}

func TestLoadFromEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	store := New(pg.Pool)
	require.NoError(t, store.Migrate(ctx))

	testutil.Given(t, "an empty database", func(t *testing.T) {
		testutil.Then(t, "load yields an empty snapshot", func(t *testing.T) {
			snap, err := store.Load(ctx)
			require.NoError(t, err)
			require.Empty(t, snap.Codes)
			require.Empty(t, snap.Records)
			require.Empty(t, snap.Services)
		})
	})
}
