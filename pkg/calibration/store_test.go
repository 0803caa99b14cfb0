package calibration

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStoreMissingFile(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "calibration.json"))
	p, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestJSONStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calibration.json")
	s := NewJSONStore(path)

	normal := samples(Normal, 0.1, 0.2)
	cheat := samples(Cheat, 0.8)
	p := NewProfile(Result{Threshold: 0.5}, normal, cheat, time.Now())
	require.NoError(t, s.Save(p))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, 0.5, loaded.Threshold)
	assert.Equal(t, 2, loaded.NormalSamplesCount)
	assert.Len(t, loaded.CheatSamples, 1)
}

func TestJSONStoreFileFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	s := NewJSONStore(path)
	require.NoError(t, s.Save(NewProfile(Result{Threshold: 0.3}, samples(Normal, 0.1), samples(Cheat, 0.5), time.Now())))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{`"threshold"`, `"normal_samples_count"`, `"cheat_samples_count"`, `"normal_samples"`, `"cheat_samples"`, `"timestamp"`} {
		assert.Contains(t, string(raw), field)
	}
}

func TestJSONStoreRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0644))
	_, err := NewJSONStore(garbage).Load()
	assert.Error(t, err)

	outOfRange := filepath.Join(dir, "range.json")
	require.NoError(t, os.WriteFile(outOfRange, []byte(`{"threshold": 1.7}`), 0644))
	_, err = NewJSONStore(outOfRange).Load()
	assert.Error(t, err)
}

func TestJSONStoreWithoutThresholdIsUncalibrated(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{"normal_samples_count":3,"cheat_samples_count":3}`},
		{"zero", `{"threshold":0,"normal_samples_count":3,"cheat_samples_count":3}`},
		{"negative", `{"threshold":-0.2}`},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("c%d.json", i))
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))

			p, err := NewJSONStore(path).Load()
			require.NoError(t, err)
			assert.Nil(t, p)
			assert.Equal(t, 0.6, EffectiveThreshold(p, 0.6))
		})
	}
}

func TestJSONStoreSaveNil(t *testing.T) {
	assert.Error(t, NewJSONStore(filepath.Join(t.TempDir(), "c.json")).Save(nil))
}
