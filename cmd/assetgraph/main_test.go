package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/codec"
	"assetgraph/internal/config"
)

const testDataModel = `
classes:
  - name: RootObject
    abstract: true
    attributes:
      - name: name
        type: String
        visible: true
  - name: InventoryObject
    parent: RootObject
    abstract: true
  - name: GenericObjectList
    parent: RootObject
    abstract: true
  - name: Router
    parent: InventoryObject
    attributes:
      - name: serialNumber
        type: String
        unique: true
rules:
  - children: [Router]
`

// writeConfig writes a config pointing at a fresh database in dir
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "assetgraph.db")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, cfg.Save(path))
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestVersion(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	assert.Equal(t, "assetgraph dev\n", run(t, "--config", cfgPath, "version"))
}

func TestSchemaImportExport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)
	modelPath := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(modelPath, []byte(testDataModel), 0o644))

	out := run(t, "--config", cfgPath, "schema", "import", modelPath)
	assert.Contains(t, out, "classes created:    4")
	assert.Contains(t, out, "rules added:        1")

	// A second import finds everything in place
	out = run(t, "--config", cfgPath, "schema", "import", modelPath)
	assert.Contains(t, out, "classes created:    0")

	exported := filepath.Join(dir, "export.json")
	run(t, "--config", cfgPath, "schema", "export", "-o", exported)

	f, err := os.Open(exported)
	require.NoError(t, err)
	defer f.Close()
	model, err := codec.NewJSONCodec().Parse(f)
	require.NoError(t, err)

	var names []string
	for _, c := range model.Classes {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Router")
	require.NotEmpty(t, model.Rules)
	assert.Equal(t, []string{"Router"}, model.Rules[0].Children)
}

func TestSchemaExportToStdout(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	out := run(t, "--config", cfgPath, "schema", "export", "--format", "yaml")
	assert.True(t, strings.HasPrefix(out, "version:"), out)
}

func TestExportCodec(t *testing.T) {
	c, err := exportCodec("", "")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Format())

	c, err = exportCodec("", "out.json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Format())

	c, err = exportCodec("yml", "out.json")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Format())

	_, err = exportCodec("xml", "")
	assert.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir())
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "--log-level", "loud", "version"})
	assert.Error(t, cmd.Execute())
}
