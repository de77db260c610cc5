package sysreg

import (
	"github.com/elliotchance/orderedmap/v3"

	"github.com/sysreg/sysreg/internal/ast"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/internal/moduleinfo"
)

// All imports and re-exports of one module specifier. Each group is one entry
// in the dependency array and gets one setter.
type dependencyGroup struct {
	specifier       string
	loc             logger.Loc
	externalImports []moduleinfo.ExternalImport
}

// Groups are in the order each specifier was first seen and the statements in
// each group are in source order
func (v *visitor) groupDependencies() []*dependencyGroup {
	groups := orderedmap.NewOrderedMap[string, *dependencyGroup]()

	for _, external := range v.state.info.ExternalImports {
		specifier, ok := v.resolveSpecifier(external.ImportRecordIndex)
		if !ok {
			continue
		}
		if group, ok := groups.Get(specifier); ok {
			group.externalImports = append(group.externalImports, external)
			continue
		}
		groups.Set(specifier, &dependencyGroup{
			specifier:       specifier,
			loc:             v.state.tree.ImportRecords[external.ImportRecordIndex].Range.Loc,
			externalImports: []moduleinfo.ExternalImport{external},
		})
	}

	result := make([]*dependencyGroup, 0, groups.Len())
	for group := range groups.Values() {
		result = append(result, group)
	}
	return result
}

// Returns the text that goes in the dependency array for an import record, or
// false if the dependency should be left out
func (v *visitor) resolveSpecifier(recordIndex uint32) (string, bool) {
	record := &v.state.tree.ImportRecords[recordIndex]

	if record.Flags.Has(ast.HasNonLiteralPath) {
		v.log.AddDebug(logger.MsgID_SysReg_UnresolvableSpecifier, &v.source, record.Range,
			"Leaving out a dependency whose path is not a string literal")
		return "", false
	}

	specifier := v.options.RenameDependency(record.Path.Text)
	if v.host != nil {
		resolved, ok := v.host.ResolveSpecifier(v.source.KeyPath.Text, specifier)
		if !ok {
			v.log.AddDebug(logger.MsgID_SysReg_UnresolvableSpecifier, &v.source, record.Range,
				"Leaving out the dependency %q since it could not be resolved", specifier)
			return "", false
		}
		specifier = resolved
	}
	return specifier, true
}
