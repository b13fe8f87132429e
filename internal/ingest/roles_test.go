package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWithColumns(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: ColumnText}
	}
	return &Table{Columns: cols}
}

func TestResolveRoles(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    Roles
	}{
		{
			name:    "exact names",
			columns: []string{"cliente", "valor_total", "uf"},
			want:    Roles{RoleCustomer: "cliente", RoleAmount: "valor_total", RoleRegion: "uf"},
		},
		{
			name:    "case and accents ignored",
			columns: []string{"Natureza da Operação", "Data Emissão", "Valor Total"},
			want: Roles{
				RoleOperation: "Natureza da Operação",
				RoleDate:      "Data Emissão",
				RoleAmount:    "Valor Total",
			},
		},
		{
			name:    "substring match",
			columns: []string{"Valor Total (R$)", "Nome do Cliente"},
			want:    Roles{RoleAmount: "Valor Total (R$)", RoleCustomer: "Nome do Cliente"},
		},
		{
			name:    "earlier candidate wins",
			columns: []string{"total", "valor_nota"},
			want:    Roles{RoleAmount: "valor_nota"},
		},
		{
			name:    "sheet column never matches",
			columns: []string{SheetColumn},
			want:    Roles{},
		},
		{
			name:    "nothing recognizable",
			columns: []string{"foo", "bar"},
			want:    Roles{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRoles(tableWithColumns(tt.columns...), DefaultRoleConfig())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRoles_NilTable(t *testing.T) {
	assert.Empty(t, ResolveRoles(nil, DefaultRoleConfig()))
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "naturezadaoperacao", foldName("Natureza da Operação"))
	assert.Equal(t, "naturezadaoperacao", foldName("natureza_da_operacao"))
	assert.Equal(t, "municipio", foldName("MUNICÍPIO"))
	assert.Equal(t, "", foldName("  -- "))
}

func TestLoadRoleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Amount: [preco, price]\nsector: [ramo]\n"), 0o600))

	cfg, err := LoadRoleConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"preco", "price"}, cfg[RoleAmount])
	assert.Equal(t, []string{"ramo"}, cfg[RoleSector])
	assert.Equal(t, DefaultRoleConfig()[RoleCustomer], cfg[RoleCustomer], "roles not in the file keep their defaults")

	roles := ResolveRoles(tableWithColumns("Preço", "cliente"), cfg)
	assert.Equal(t, "Preço", roles[RoleAmount])
}

func TestLoadRoleConfig_Errors(t *testing.T) {
	_, err := LoadRoleConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("amount: {not: [a list"), 0o600))
	_, err = LoadRoleConfig(path)
	assert.Error(t, err)
}

func TestRolesSorted(t *testing.T) {
	r := Roles{RoleTax: "icms", RoleAmount: "valor", RoleDate: "data"}
	assert.Equal(t, []Role{RoleAmount, RoleDate, RoleTax}, r.Sorted())
}
