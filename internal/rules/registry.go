package rules

import (
	"sync"

	"github.com/devos-os/d-scan/internal/core"
	"github.com/devos-os/d-scan/internal/source"
)

// Registry is read-only after construction and safe to share.
type Registry struct {
	lexical    map[core.Category][]Rule
	absence    map[core.Category][]AbsenceRule
	structural map[core.Category][]StructuralRule
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, built on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = build()
	})
	return defaultReg
}

func build() *Registry {
	return &Registry{
		lexical: map[core.Category][]Rule{
			core.CatSecrets:    secretRules(),
			core.CatInjection:  injectionRules(),
			core.CatXSS:        xssRules(),
			core.CatCrypto:     cryptoRules(),
			core.CatAuth:       authRules(),
			core.CatPath:       pathRules(),
			core.CatDockerfile: dockerfileRules(),
			core.CatTerraform:  terraformRules(),
		},
		absence: map[core.Category][]AbsenceRule{
			core.CatDockerfile: dockerfileAbsenceRules(),
			core.CatTerraform:  terraformAbsenceRules(),
		},
		structural: map[core.Category][]StructuralRule{
			core.CatKubernetes: kubernetesRules(),
		},
	}
}

// For returns the lexical rules of category that apply to lang, in table
// order. The slice is a copy.
func (r *Registry) For(category core.Category, lang source.Language) []Rule {
	all := r.lexical[category]
	out := make([]Rule, 0, len(all))
	for _, rule := range all {
		if rule.AppliesTo(lang) {
			out = append(out, rule)
		}
	}
	return out
}

func (r *Registry) Absence(category core.Category) []AbsenceRule {
	return append([]AbsenceRule(nil), r.absence[category]...)
}

func (r *Registry) Structural(category core.Category) []StructuralRule {
	return append([]StructuralRule(nil), r.structural[category]...)
}

// Categories lists the code categories in scan order.
func Categories() []core.Category {
	return []core.Category{
		core.CatSecrets,
		core.CatInjection,
		core.CatXSS,
		core.CatCrypto,
		core.CatAuth,
		core.CatPath,
	}
}

// ManifestCategories lists the IaC categories.
func ManifestCategories() []core.Category {
	return []core.Category{core.CatDockerfile, core.CatTerraform, core.CatKubernetes}
}

// ParseCategory принимает имя категории из CLI/конфига.
func ParseCategory(v string) (core.Category, bool) {
	all := append(Categories(), ManifestCategories()...)
	for _, c := range append(all, core.CatDependencies) {
		if string(c) == v {
			return c, true
		}
	}
	return "", false
}
