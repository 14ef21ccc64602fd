package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestReadLabels validates ordering, trimming and blank-line handling.
func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(strings.NewReader("\uFEFFbackground\n  tabby cat \n\n\r\ngoldfish\r\n\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"background", "tabby cat", "goldfish"}, labels.Names())
	assert.Equal(t, 3, labels.Len())

	name, ok := labels.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "goldfish", name)

	_, ok = labels.Name(3)
	assert.False(t, ok)
}

// TestReadLabelsEmpty validates that a label file without labels is rejected.
func TestReadLabelsEmpty(t *testing.T) {
	_, err := ReadLabels(strings.NewReader("\n \n\t\n"))
	assert.Error(t, err)
}

// TestLabelSetDuplicates validates that repeated names keep their class positions.
func TestLabelSetDuplicates(t *testing.T) {
	names := []string{"crane", "heron", "crane"}
	labels := NewLabelSet(names)
	names[0] = "changed"

	require.Equal(t, 3, labels.Len())
	name, ok := labels.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "crane", name)
	assert.Equal(t, []string{"crane", "heron", "crane"}, labels.Names())
}

// TestLoad validates loading artifacts and each artifact failure.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "model.onnx", "graph")
	labels := writeFile(t, dir, "labels.txt", "a\nb\n")
	empty := writeFile(t, dir, "empty.onnx", "")
	blank := writeFile(t, dir, "blank.txt", "\n\n")

	a, err := Load(model, labels)
	require.NoError(t, err)
	assert.Equal(t, []byte("graph"), a.Model)
	assert.Equal(t, 2, a.Labels.Len())
	assert.Equal(t, model, a.ModelPath)

	tests := []struct {
		name   string
		model  string
		labels string
	}{
		{name: "missing model", model: filepath.Join(dir, "nope.onnx"), labels: labels},
		{name: "empty model", model: empty, labels: labels},
		{name: "missing labels", model: model, labels: filepath.Join(dir, "nope.txt")},
		{name: "blank labels", model: model, labels: blank},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.model, tt.labels)
			assert.ErrorIs(t, err, ErrArtifactLoad)
		})
	}
}

// TestPreset validates artifact naming and normalization of both variants.
func TestPreset(t *testing.T) {
	quant, err := Preset(VariantQuantized, "assets", ".tflite")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("assets", "model20kv2quant.tflite"), quant.ModelPath)
	assert.Equal(t, filepath.Join("assets", "labels.txt"), quant.LabelPath)
	assert.Equal(t, float32(200), quant.Input.Apply(200))
	assert.InDelta(t, 0.95, quant.Output.Apply(242.25), 1e-6)
	require.NoError(t, quant.Validate())

	float, err := Preset(VariantFloat, "", ".onnx")
	require.NoError(t, err)
	assert.Equal(t, "model20kv2float.onnx", float.ModelPath)
	assert.Equal(t, float32(-1), float.Input.Apply(0))
	assert.Equal(t, float32(1), float.Input.Apply(255))
	assert.Equal(t, float32(0.5), float.Output.Apply(0.5))

	_, err = Preset("int4", "", ".onnx")
	assert.Error(t, err)
}

// TestVariantValidate validates rejection of incomplete variants.
func TestVariantValidate(t *testing.T) {
	v, err := Preset(VariantFloat, "", ".onnx")
	require.NoError(t, err)

	noModel := v
	noModel.ModelPath = ""
	assert.Error(t, noModel.Validate())

	zeroStd := v
	zeroStd.Output = Normalization{}
	assert.Error(t, zeroStd.Validate())
}

// TestVariantKindYAML validates decoding of variant names from config.
func TestVariantKindYAML(t *testing.T) {
	var doc struct {
		Variant VariantKind `yaml:"variant"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("variant: Quant\n"), &doc))
	assert.Equal(t, VariantQuantized, doc.Variant)
	assert.Error(t, yaml.Unmarshal([]byte("variant: fp16\n"), &doc))
}
