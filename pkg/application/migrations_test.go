package application

import (
	"reflect"
	"testing"
)

func TestSplitSQLStatements(t *testing.T) {
	script := `
CREATE TABLE IF NOT EXISTS tenants (id uuid PRIMARY KEY);

CREATE INDEX IF NOT EXISTS idx_tenants_id ON tenants (id);
`
	got := splitSQLStatements(script)
	want := []string{
		"CREATE TABLE IF NOT EXISTS tenants (id uuid PRIMARY KEY)",
		"CREATE INDEX IF NOT EXISTS idx_tenants_id ON tenants (id)",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSplitSQLStatements_SkipsEmptyChunks(t *testing.T) {
	got := splitSQLStatements(";;  ;\n;")
	if len(got) != 0 {
		t.Fatalf("expected no statements, got %v", got)
	}
}
