package detectors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelFor(t *testing.T) {
	assert.Equal(t, Outlier, LabelFor(0.71, 0.6))
	assert.Equal(t, Normal, LabelFor(0.6, 0.6))
	assert.Equal(t, Normal, LabelFor(0.2, 0.6))
}

func TestLabelJSON(t *testing.T) {
	data, err := json.Marshal(Score{Value: 0.7, Label: Outlier})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":0.7,"anomaly":"outlier"}`, string(data))

	var s Score
	require.NoError(t, json.Unmarshal([]byte(`{"score":0.1,"anomaly":"normal"}`), &s))
	assert.Equal(t, Normal, s.Label)
	assert.False(t, s.IsOutlier())

	assert.Error(t, json.Unmarshal([]byte(`{"anomaly":"maybe"}`), &s))

	_, err = Label(0).MarshalText()
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100, cfg.Trees)
	assert.Equal(t, 0.05, cfg.Contamination)
	assert.Equal(t, int64(42), cfg.RandomSeed)
}
