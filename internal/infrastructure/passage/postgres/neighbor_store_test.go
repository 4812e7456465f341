package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/halden-labs/answercore/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*NeighborStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &NeighborStore{db: db}, mock, func() { _ = db.Close() }
}

func TestNeighborsReturnsBothSpans(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"offset", "content"}).
		AddRow(-1, "span before").
		AddRow(1, "span after")
	mock.ExpectQuery("SELECT n.span_index - p.span_index").
		WithArgs("doc-7").
		WillReturnRows(rows)

	spans, err := store.Neighbors(context.Background(), "doc-7")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if spans.Before != "span before" || spans.After != "span after" {
		t.Errorf("spans = %+v", spans)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNeighborsMissingEdgeSpans(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	// First span of a document has no predecessor.
	rows := sqlmock.NewRows([]string{"offset", "content"}).
		AddRow(1, "span after")
	mock.ExpectQuery("SELECT n.span_index - p.span_index").
		WithArgs("doc-first").
		WillReturnRows(rows)

	spans, err := store.Neighbors(context.Background(), "doc-first")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if spans.Before != "" || spans.After != "span after" {
		t.Errorf("spans = %+v", spans)
	}
}

func TestNeighborsUnknownSourceIsEmpty(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT n.span_index - p.span_index").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"offset", "content"}))

	spans, err := store.Neighbors(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if spans.Before != "" || spans.After != "" {
		t.Errorf("spans = %+v, want empty", spans)
	}
}

func TestNeighborsQueryFailureIsTemporary(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT n.span_index - p.span_index").
		WithArgs("doc-7").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Neighbors(context.Background(), "doc-7")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("err = %v, want ErrTemporary", err)
	}
}
