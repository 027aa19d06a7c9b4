package resourcegroups

import "testing"

var testGroups = []Group{
	{Name: "adhoc", SoftMemoryLimit: "50%", MaxQueued: 100, HardConcurrencyLimit: 10},
	{Name: "etl", SoftMemoryLimit: "80%", MaxQueued: 1000, HardConcurrencyLimit: 50, SchedulingPolicy: "fair"},
	{Name: "dashboards", SoftMemoryLimit: "20%", MaxQueued: 50, HardConcurrencyLimit: 5},
}

func TestMatchPicksHighestPriority(t *testing.T) {
	specs := []SelectorSpec{
		{Priority: 1, Group: "adhoc"},
		{Priority: 10, UserRegex: "etl_.*", Group: "etl"},
	}
	rs, err := compileRuleSet(testGroups, specs, nil)
	if err != nil {
		t.Fatal(err)
	}

	g, ok := rs.match(SelectionCriteria{User: "etl_nightly"})
	if !ok || g.Name != "etl" {
		t.Errorf("matched %q, want etl", g.Name)
	}
	g, ok = rs.match(SelectionCriteria{User: "alice"})
	if !ok || g.Name != "adhoc" {
		t.Errorf("matched %q, want adhoc fallback", g.Name)
	}
}

func TestMatchFiltersOnSourceAndQueryType(t *testing.T) {
	specs := []SelectorSpec{
		{Priority: 5, SourceRe: "looker.*", QueryType: "SELECT", Group: "dashboards"},
	}
	rs, err := compileRuleSet(testGroups, specs, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := rs.match(SelectionCriteria{Source: "looker-prod", QueryType: "SELECT"}); !ok {
		t.Error("matching source and query type must select the group")
	}
	if _, ok := rs.match(SelectionCriteria{Source: "looker-prod", QueryType: "INSERT"}); ok {
		t.Error("query type mismatch must not match")
	}
	if _, ok := rs.match(SelectionCriteria{Source: "cli", QueryType: "SELECT"}); ok {
		t.Error("source mismatch must not match")
	}
}

func TestMatchNoSelectorAccepts(t *testing.T) {
	rs, err := compileRuleSet(testGroups, []SelectorSpec{{Priority: 1, UserRegex: "^bob$", Group: "adhoc"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rs.match(SelectionCriteria{User: "alice"}); ok {
		t.Error("no selector accepts alice, match must report false")
	}
}

func TestExactMatchWinsOverSelectors(t *testing.T) {
	specs := []SelectorSpec{{Priority: 100, Group: "adhoc"}}
	exact := []ExactMatchSpec{{Source: "airflow", QueryType: "INSERT", Group: "etl"}}
	rs, err := compileRuleSet(testGroups, specs, exact)
	if err != nil {
		t.Fatal(err)
	}

	g, ok := rs.match(SelectionCriteria{Source: "airflow", QueryType: "INSERT"})
	if !ok || g.Name != "etl" {
		t.Errorf("matched %q, want exact match group etl", g.Name)
	}
	g, _ = rs.match(SelectionCriteria{Source: "airflow", QueryType: "SELECT"})
	if g.Name != "adhoc" {
		t.Errorf("matched %q, want selector fallback adhoc", g.Name)
	}
}

func TestCompileRejectsUnknownGroup(t *testing.T) {
	_, err := compileRuleSet(testGroups, []SelectorSpec{{Priority: 1, Group: "nope"}}, nil)
	if err == nil {
		t.Fatal("selector referencing an unknown group must be rejected")
	}
	_, err = compileRuleSet(testGroups, nil, []ExactMatchSpec{{Source: "x", Group: "nope"}})
	if err == nil {
		t.Fatal("exact match referencing an unknown group must be rejected")
	}
}

func TestCompileRejectsBadRegex(t *testing.T) {
	if _, err := compileRuleSet(testGroups, []SelectorSpec{{Priority: 1, UserRegex: "([", Group: "adhoc"}}, nil); err == nil {
		t.Fatal("invalid user regex must be rejected")
	}
	if _, err := compileRuleSet(testGroups, []SelectorSpec{{Priority: 1, SourceRe: "([", Group: "adhoc"}}, nil); err == nil {
		t.Fatal("invalid source regex must be rejected")
	}
}
