package mod

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModule struct {
	name string
	io   ModuleIO
}

func (m *stubModule) Name() string                                 { return m.name }
func (m *stubModule) GetIO() ModuleIO                              { return m.io }
func (m *stubModule) Validate(params map[string]interface{}) error { return nil }
func (m *stubModule) Execute(ctx context.Context, params map[string]interface{}) (ModuleResult, error) {
	return ModuleResult{}, nil
}

func validIO() ModuleIO {
	return ModuleIO{
		RequiredInputs:  []ModuleInput{{Name: "input", Type: string(InputTypeFile)}},
		ProducedOutputs: []ModuleOutput{{Name: "video", Type: string(OutputTypeFile), Patterns: []string{".mp4"}}},
	}
}

func TestRegistry(t *testing.T) {
	r := NewModuleRegistry()
	require.NoError(t, r.Register(&stubModule{name: "b", io: validIO()}))
	require.NoError(t, r.Register(&stubModule{name: "a", io: validIO()}))

	assert.Error(t, r.Register(&stubModule{name: "a", io: validIO()}), "duplicate")
	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&stubModule{name: "", io: validIO()}))

	m, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", m.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestValidateIO(t *testing.T) {
	tests := []struct {
		name    string
		io      ModuleIO
		wantErr bool
	}{
		{"valid", validIO(), false},
		{"empty input name", ModuleIO{RequiredInputs: []ModuleInput{{Type: "file"}}}, true},
		{"bad input type", ModuleIO{OptionalInputs: []ModuleInput{{Name: "x", Type: "blob"}}}, true},
		{"file output without pattern", ModuleIO{ProducedOutputs: []ModuleOutput{{Name: "x", Type: "file"}}}, true},
		{"data output without pattern", ModuleIO{ProducedOutputs: []ModuleOutput{{Name: "count", Type: "data"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIO(tt.io)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.True(t, validIO().HasOutput("video"))
	assert.False(t, validIO().HasOutput("audio"))
}

func TestParseParams(t *testing.T) {
	type params struct {
		Input   string  `json:"input"`
		Workers int     `json:"workers"`
		Score   float64 `json:"minScore"`
	}

	var p params
	require.NoError(t, ParseParams(map[string]interface{}{
		"input":    "a.mp4",
		"workers":  2,
		"minScore": 0.5,
		"unknown":  true,
	}, &p))
	assert.Equal(t, params{Input: "a.mp4", Workers: 2, Score: 0.5}, p)

	assert.Error(t, ParseParams(nil, &p))
	assert.Error(t, ParseParams(map[string]interface{}{}, p))
	assert.Error(t, ParseParams(map[string]interface{}{"workers": "two"}, &p))
}
