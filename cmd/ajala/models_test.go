package main

import (
	"testing"

	"ajala-hq/ajala/pkg/providers"
)

func TestModelTable(t *testing.T) {
	table := modelTable{
		{Provider: providers.OpenAI, DefaultModel: "gpt-4o", Models: []string{"gpt-4o", "gpt-4o-mini"}},
		{Provider: providers.Mock, DefaultModel: "mock-model-1", Models: []string{"mock-model-1"}},
	}

	rows := table.Rows()
	want := [][]string{
		{"openai", "gpt-4o", "*"},
		{"openai", "gpt-4o-mini", ""},
		{"mock", "mock-model-1", "*"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
				break
			}
		}
	}
}
