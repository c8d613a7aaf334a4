package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/prospectiq/internal/prospect"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadProfileAcceptsCompileOutput(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "profile.yaml", `
name: Boutiques FR
summary: Shopify
compiled:
  country: FR
  sectors: [retail]
  weights:
    country: 30
    sector: 20
`)

	p, err := loadProfile(path)
	require.NoError(t, err)
	require.NotNil(t, p.Country)
	assert.Equal(t, "FR", *p.Country)
	assert.Equal(t, []string{"retail"}, p.Sectors)
	assert.Equal(t, 30.0, p.Weights.Country)
}

func TestLoadProfileAcceptsBareProfile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "profile.json", `{"sectors":["saas"],"sizeMin":10}`)

	p, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"saas"}, p.Sectors)
	require.NotNil(t, p.SizeMin)
	assert.Equal(t, 10.0, *p.SizeMin)
	assert.Equal(t, prospect.DefaultWeights(), p.Weights)
}

func TestLoadProfileCompiledSectionGetsDefaultWeights(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "profile.yaml", `
name: Boutiques FR
compiled:
  country: FR
  sectors: [ecommerce]
  sizeMin: "20"
`)

	p, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, prospect.DefaultWeights(), p.Weights)
	assert.Equal(t, []string{"ecommerce"}, p.Sectors)
	assert.Equal(t, []string{}, p.Roles)
	require.NotNil(t, p.SizeMin)
	assert.Equal(t, 20.0, *p.SizeMin)
}

func TestLoadProfileRejectsInvalidWeights(t *testing.T) {
	t.Parallel()

	_, err := loadProfile(writeFile(t, "profile.yaml", "weights:\n  country: beaucoup\n"))
	assert.Error(t, err)
}

func TestLoadProspectsAssignsIDs(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "prospects.yaml", `
items:
  - id: acme
    url: https://acme.fr
    features:
      country: FR
      sectorText: retail
  - url: https://globex.de
    features:
      employeeCount: 42
`)

	p, err := loadProspects(path)
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, "acme", p.Items[0].ID)
	assert.Equal(t, "retail", p.Items[0].Features.SectorText)
	assert.NotEmpty(t, p.Items[1].ID)
	require.NotNil(t, p.Items[1].Features.EmployeeCount)
	assert.Equal(t, 42.0, *p.Items[1].Features.EmployeeCount)
}

func TestLoadICPErrors(t *testing.T) {
	t.Parallel()

	_, err := loadICP(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadICP(writeFile(t, "icp.yaml", "sectors: {broken"))
	assert.Error(t, err)
}
