package resolve

import (
	"strings"

	"github.com/kode4food/twill/pkg/api"
	"github.com/kode4food/twill/pkg/util"
)

// Refs returns the step IDs referenced by placeholders in a value, in first
// occurrence order. Environment references contribute nothing
func Refs(value any) []api.StepID {
	s, ok := value.(string)
	if !ok {
		return nil
	}

	var res []api.StepID
	seen := util.Set[api.StepID]{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		path := strings.TrimSpace(m[1])
		if path == "" || strings.HasPrefix(path, ".") {
			continue
		}
		id, _, _ := strings.Cut(path, ".")
		stepID := api.StepID(id)
		if seen.Contains(stepID) {
			continue
		}
		seen.Add(stepID)
		res = append(res, stepID)
	}
	return res
}

// ParamRefs returns the step IDs referenced across an argument map, in
// first occurrence order per value
func ParamRefs(args api.Args) []api.StepID {
	var res []api.StepID
	seen := util.Set[api.StepID]{}
	for _, name := range util.SortedKeys(args) {
		for _, id := range Refs(args[name]) {
			if seen.Contains(id) {
				continue
			}
			seen.Add(id)
			res = append(res, id)
		}
	}
	return res
}

// HasPlaceholder reports whether a value still carries placeholder markers
func HasPlaceholder(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	return placeholderPattern.MatchString(s)
}
