package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "state.yaml"))

	st, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, ConsentUnknown, st.MicrophoneConsent)
	require.False(t, st.NewRecordings)
}

func TestStore_Consent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.yaml"))

	require.NoError(t, store.SetConsent(true))
	consent, err := store.Consent()
	require.NoError(t, err)
	require.Equal(t, ConsentGranted, consent)

	require.NoError(t, store.SetConsent(false))
	consent, err = store.Consent()
	require.NoError(t, err)
	require.Equal(t, ConsentDenied, consent)

	require.NoError(t, store.ResetConsent())
	consent, err = store.Consent()
	require.NoError(t, err)
	require.Equal(t, ConsentUnknown, consent)
}

func TestStore_Badge(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.yaml"))
	require.False(t, store.HasNewRecording())

	require.NoError(t, store.MarkNewRecording())
	require.True(t, store.HasNewRecording())

	had, err := store.ClearNewRecording()
	require.NoError(t, err)
	require.True(t, had)
	require.False(t, store.HasNewRecording())

	had, err = store.ClearNewRecording()
	require.NoError(t, err)
	require.False(t, had)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("new_recordings: [oops"), 0644))

	_, err := NewStore(path).Load()
	require.Error(t, err)
}
