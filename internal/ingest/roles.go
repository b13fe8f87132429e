package ingest

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Role is a logical meaning a column can carry, independent of its header text.
type Role string

const (
	RoleAmount    Role = "amount"
	RoleDate      Role = "date"
	RoleCustomer  Role = "customer"
	RoleRegion    Role = "region"
	RoleTax       Role = "tax"
	RoleOperation Role = "operation"
	RoleSector    Role = "sector"
)

// RoleConfig maps each role to acceptable column names, in preference order.
type RoleConfig map[Role][]string

// Roles is the resolved role -> column name mapping for one table.
type Roles map[Role]string

// Column returns the column resolved for r.
func (r Roles) Column(role Role) (string, bool) {
	c, ok := r[role]
	return c, ok
}

// Sorted returns the resolved roles ordered by role name.
func (r Roles) Sorted() []Role {
	out := make([]Role, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultRoleConfig returns candidates tuned for Brazilian fiscal exports
// (notas fiscais) with English fallbacks.
func DefaultRoleConfig() RoleConfig {
	return RoleConfig{
		RoleAmount:    {"valor_total", "valor_nota", "valor", "total", "amount"},
		RoleDate:      {"data_emissao", "data", "date", "emissao"},
		RoleCustomer:  {"cliente", "destinatario", "razao_social", "customer"},
		RoleRegion:    {"uf", "estado", "regiao", "region", "municipio"},
		RoleTax:       {"icms", "pis", "cofins", "ipi", "iss", "tax"},
		RoleOperation: {"natureza_da_operacao", "natureza_operacao", "tipo_operacao", "operacao", "operation"},
		RoleSector:    {"setor", "segmento", "sector"},
	}
}

// LoadRoleConfig reads a YAML file of the form
//
//	amount: [valor_total, valor]
//	date: [data_emissao]
//
// Roles present in the file replace the defaults; others keep them.
func LoadRoleConfig(path string) (RoleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role config: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse role config %s: %w", path, err)
	}

	cfg := DefaultRoleConfig()
	for role, candidates := range overrides {
		cfg[Role(strings.ToLower(strings.TrimSpace(role)))] = candidates
	}
	return cfg, nil
}

// minSubstringLen is the shortest folded candidate allowed to match as a
// substring. Shorter ones ("uf", "iss") occur inside unrelated words.
const minSubstringLen = 4

// ResolveRoles matches each role to at most one column of t. For every
// candidate, in order, it tries an exact case-insensitive match, then a match
// that ignores accents, spaces and punctuation, then a substring match on the
// folded names. The first hit wins. The reserved SheetColumn never matches.
func ResolveRoles(t *Table, cfg RoleConfig) Roles {
	out := make(Roles)
	if t == nil {
		return out
	}

	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name != SheetColumn {
			names = append(names, c.Name)
		}
	}
	folded := make([]string, len(names))
	for i, n := range names {
		folded[i] = foldName(n)
	}

	for role, candidates := range cfg {
		if col, ok := matchRole(names, folded, candidates); ok {
			out[role] = col
		}
	}
	return out
}

func matchRole(names, folded, candidates []string) (string, bool) {
	for _, cand := range candidates {
		for _, n := range names {
			if strings.EqualFold(n, cand) {
				return n, true
			}
		}
		fc := foldName(cand)
		if fc == "" {
			continue
		}
		for i, f := range folded {
			if f == fc {
				return names[i], true
			}
		}
		if len(fc) < minSubstringLen {
			continue
		}
		for i, f := range folded {
			if strings.Contains(f, fc) {
				return names[i], true
			}
		}
	}
	return "", false
}

// foldName lowercases s, strips accents and drops everything that is not a
// letter or digit, so "Natureza da Operação" and "natureza_da_operacao" agree.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
