package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/creditflow/internal/core/draft"
	"github.com/flowgraph/creditflow/internal/infrastructure/metrics"
	"github.com/flowgraph/creditflow/pkg/serialization"
)

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func testDraft(id, name string, ts time.Time, tags ...string) *draft.Draft {
	return &draft.Draft{
		ID:        id,
		Name:      name,
		Document:  `{"nodes": [], "edges": []}`,
		Metadata:  draft.Metadata{NodeCount: 3, EdgeCount: 2, Tags: tags},
		Timestamp: ts,
		Version:   draft.CurrentVersion,
	}
}

func openSaver(t *testing.T, config DraftSaverConfig) *DraftSaver {
	t.Helper()
	saver, err := OpenMemory(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = saver.Close() })
	return saver
}

func ids(drafts []*draft.Draft) []string {
	out := make([]string, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.ID)
	}
	return out
}

func TestDraftSaver_BasicOperations(t *testing.T) {
	ctx := context.Background()
	saver := openSaver(t, DraftSaverConfig{})

	d := testDraft("d1", "Mortgage", base, "mortgage")
	require.NoError(t, saver.Save(ctx, d))

	loaded, err := saver.Load(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, d.Name, loaded.Name)
	assert.Equal(t, d.Document, loaded.Document)
	assert.Equal(t, d.Metadata, loaded.Metadata)
	assert.True(t, d.Timestamp.Equal(loaded.Timestamp))

	d.Name = "Mortgage v2"
	require.NoError(t, saver.Save(ctx, d))
	loaded, err = saver.Load(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "Mortgage v2", loaded.Name)

	all, err := saver.List(ctx, draft.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, saver.Delete(ctx, "d1"))
	_, err = saver.Load(ctx, "d1")
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
	assert.ErrorIs(t, saver.Delete(ctx, "d1"), draft.ErrDraftNotFound)
}

func TestDraftSaver_InvalidInput(t *testing.T) {
	ctx := context.Background()
	saver := openSaver(t, DraftSaverConfig{})

	assert.ErrorIs(t, saver.Save(ctx, nil), draft.ErrInvalidDraftID)
	assert.ErrorIs(t, saver.Save(ctx, testDraft("", "x", base)), draft.ErrInvalidDraftID)
	_, err := saver.Load(ctx, "")
	assert.ErrorIs(t, err, draft.ErrInvalidDraftID)
	assert.ErrorIs(t, saver.Delete(ctx, ""), draft.ErrInvalidDraftID)

	_, err = saver.List(ctx, draft.Filter{Limit: -1})
	assert.ErrorIs(t, err, draft.ErrInvalidLimit)
}

func TestDraftSaver_List(t *testing.T) {
	ctx := context.Background()
	saver := openSaver(t, DraftSaverConfig{})

	require.NoError(t, saver.Save(ctx, testDraft("a", "Auto Loan", base, "auto")))
	require.NoError(t, saver.Save(ctx, testDraft("b", "Mortgage", base.Add(time.Hour), "mortgage", "prime")))
	require.NoError(t, saver.Save(ctx, testDraft("c", "Mortgage Subprime", base.Add(2*time.Hour), "mortgage")))
	require.NoError(t, saver.Save(ctx, testDraft("d", "Card", base.Add(2*time.Hour))))

	since := base.Add(time.Hour)
	before := base.Add(2 * time.Hour)

	tests := []struct {
		name   string
		filter draft.Filter
		want   []string
	}{
		{name: "all newest first", filter: draft.Filter{}, want: []string{"c", "d", "b", "a"}},
		{name: "name ignores case", filter: draft.Filter{Name: "MORTGAGE"}, want: []string{"c", "b"}},
		{name: "single tag", filter: draft.Filter{Tags: []string{"mortgage"}}, want: []string{"c", "b"}},
		{name: "every tag required", filter: draft.Filter{Tags: []string{"mortgage", "prime"}}, want: []string{"b"}},
		{name: "since inclusive", filter: draft.Filter{Since: &since}, want: []string{"c", "d", "b"}},
		{name: "before exclusive", filter: draft.Filter{Before: &before}, want: []string{"b", "a"}},
		{name: "limit", filter: draft.Filter{Limit: 2}, want: []string{"c", "d"}},
		{name: "offset without limit", filter: draft.Filter{Offset: 3}, want: []string{"a"}},
		{name: "limit and offset", filter: draft.Filter{Limit: 2, Offset: 1}, want: []string{"d", "b"}},
		{name: "offset past end", filter: draft.Filter{Offset: 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := saver.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDraftSaver_Serializers(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	serializers := map[string]*serialization.Serializer{
		"msgpack zstd": serialization.DefaultSerializer(),
		"json gzip": serialization.NewSerializer(serialization.SerializationConfig{
			Codec:       serialization.NewJSONCodec(),
			Compression: serialization.CompressionGzip,
		}),
		"msgpack encrypted": serialization.NewSerializer(serialization.SerializationConfig{
			Codec:       serialization.NewMsgPackCodec(),
			Compression: serialization.CompressionZstd,
			EncryptKey:  key,
		}),
	}

	for name, serializer := range serializers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			saver := openSaver(t, DraftSaverConfig{Serializer: serializer, TableName: "drafts_v1"})

			d := testDraft("d1", "Secured", base, "secured")
			require.NoError(t, saver.Save(ctx, d))
			loaded, err := saver.Load(ctx, "d1")
			require.NoError(t, err)
			assert.Equal(t, d.Document, loaded.Document)
			assert.Equal(t, d.Metadata.Tags, loaded.Metadata.Tags)
		})
	}
}

func TestDraftSaver_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	saver := openSaver(t, DraftSaverConfig{Metrics: rec})

	require.NoError(t, saver.Save(ctx, testDraft("d1", "One", base)))
	_, err := saver.Load(ctx, "d1")
	require.NoError(t, err)
	require.NoError(t, saver.Delete(ctx, "d1"))

	count, err := testutil.GatherAndCount(reg, "creditflow_draft_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIsSafeIdent(t *testing.T) {
	assert.True(t, isSafeIdent("drafts_2"))
	assert.False(t, isSafeIdent(""))
	assert.False(t, isSafeIdent("drafts; DROP TABLE x"))

	saver := NewDraftSaver(nil, DraftSaverConfig{TableName: "bad-name"})
	assert.Equal(t, "drafts", saver.tableName)
}

func TestDraftSaver_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	saver := NewDraftSaver(db, DraftSaverConfig{})
	defer func() { _ = saver.Close() }()

	boom := errors.New("disk I/O error")

	mock.ExpectExec(regexp.QuoteMeta("INSERT OR REPLACE INTO drafts")).WillReturnError(boom)
	err = saver.Save(ctx, testDraft("d1", "One", base))
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM drafts WHERE id = ?")).
		WithArgs("d1").
		WillReturnError(boom)
	_, err = saver.Load(ctx, "d1")
	assert.ErrorIs(t, err, boom)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM drafts WHERE id = ?")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, saver.Delete(ctx, "ghost"), draft.ErrDraftNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
