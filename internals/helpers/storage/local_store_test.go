package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutOpen(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	handle, err := s.Put(context.Background(), "/receipts/receipt-1.pdf", []byte("%PDF-1.3 test"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "receipts/receipt-1.pdf", handle)

	rc, err := s.Open(context.Background(), handle)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 test", string(b))
}

func TestLocalStoreOverwrite(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "a.txt", []byte("one"), "")
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "a.txt", []byte("two"), "")
	require.NoError(t, err)

	rc, err := s.Open(context.Background(), "a.txt")
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "two", string(b))
}

func TestLocalStoreRejectsTraversalAndMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape.txt", []byte("x"), "")
	assert.Error(t, err)

	_, err = s.Put(context.Background(), "  ", []byte("x"), "")
	assert.Error(t, err)

	_, err = s.Open(context.Background(), "nope.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}
