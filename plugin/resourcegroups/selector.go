package resourcegroups

import (
	"fmt"
	"regexp"
	"sort"
)

// Group is one resource group definition.
type Group struct {
	Name                 string `json:"name"`
	SoftMemoryLimit      string `json:"softMemoryLimit"`
	MaxQueued            int    `json:"maxQueued"`
	HardConcurrencyLimit int    `json:"hardConcurrencyLimit"`
	SchedulingPolicy     string `json:"schedulingPolicy,omitempty"`
}

// SelectionCriteria describes one incoming query for selector matching.
type SelectionCriteria struct {
	User      string
	Source    string
	QueryType string
}

// SelectorSpec is the uncompiled form of a selector, as stored in the
// database or the JSON config file.
type SelectorSpec struct {
	Priority  int64  `json:"priority"`
	UserRegex string `json:"user,omitempty"`
	SourceRe  string `json:"source,omitempty"`
	QueryType string `json:"queryType,omitempty"`
	Group     string `json:"group"`
}

// ExactMatchSpec maps an exact source and query type pair straight to a
// group, bypassing the regex selectors.
type ExactMatchSpec struct {
	Source    string `json:"source"`
	QueryType string `json:"queryType"`
	Group     string `json:"group"`
}

type selector struct {
	priority  int64
	userRe    *regexp.Regexp
	sourceRe  *regexp.Regexp
	queryType string
	group     string
}

func (s *selector) matches(c SelectionCriteria) bool {
	if s.userRe != nil && !s.userRe.MatchString(c.User) {
		return false
	}
	if s.sourceRe != nil && !s.sourceRe.MatchString(c.Source) {
		return false
	}
	if s.queryType != "" && s.queryType != c.QueryType {
		return false
	}
	return true
}

// ruleSet is one consistent snapshot of groups and compiled selectors.
// Managers swap whole rule sets on refresh so matching never observes a
// half-loaded configuration.
type ruleSet struct {
	groups    map[string]Group
	selectors []selector
	exact     map[exactKey]string
}

type exactKey struct {
	source    string
	queryType string
}

func compileRuleSet(groups []Group, specs []SelectorSpec, exact []ExactMatchSpec) (*ruleSet, error) {
	rs := &ruleSet{groups: make(map[string]Group, len(groups))}
	for _, g := range groups {
		rs.groups[g.Name] = g
	}
	for _, spec := range specs {
		if _, ok := rs.groups[spec.Group]; !ok {
			return nil, fmt.Errorf("selector references unknown group %q", spec.Group)
		}
		sel := selector{priority: spec.Priority, queryType: spec.QueryType, group: spec.Group}
		var err error
		if spec.UserRegex != "" {
			if sel.userRe, err = regexp.Compile(spec.UserRegex); err != nil {
				return nil, fmt.Errorf("selector user regex %q: %w", spec.UserRegex, err)
			}
		}
		if spec.SourceRe != "" {
			if sel.sourceRe, err = regexp.Compile(spec.SourceRe); err != nil {
				return nil, fmt.Errorf("selector source regex %q: %w", spec.SourceRe, err)
			}
		}
		rs.selectors = append(rs.selectors, sel)
	}
	sort.SliceStable(rs.selectors, func(i, j int) bool {
		return rs.selectors[i].priority > rs.selectors[j].priority
	})
	if len(exact) > 0 {
		rs.exact = make(map[exactKey]string, len(exact))
		for _, spec := range exact {
			if _, ok := rs.groups[spec.Group]; !ok {
				return nil, fmt.Errorf("exact match selector references unknown group %q", spec.Group)
			}
			rs.exact[exactKey{source: spec.Source, queryType: spec.QueryType}] = spec.Group
		}
	}
	return rs, nil
}

// match returns the highest-priority group whose selector accepts the query.
// Exact source and query type matches win over the regex selectors.
func (rs *ruleSet) match(c SelectionCriteria) (Group, bool) {
	if name, ok := rs.exact[exactKey{source: c.Source, queryType: c.QueryType}]; ok {
		return rs.groups[name], true
	}
	for i := range rs.selectors {
		if rs.selectors[i].matches(c) {
			return rs.groups[rs.selectors[i].group], true
		}
	}
	return Group{}, false
}
