package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"ajala-hq/ajala/pkg/tokens"
)

func TestReadTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.txt")
	writeFile(t, path, "From file {{x}}")

	tests := []struct {
		name    string
		file    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "argument", args: []string{"Hi {{name}}"}, want: "Hi {{name}}"},
		{name: "file", file: path, want: "From file {{x}}"},
		{name: "stdin", file: "-", stdin: "piped", want: "piped"},
		{name: "missing file", file: filepath.Join(dir, "nope.txt"), wantErr: true},
		{name: "file and argument", file: path, args: []string{"x"}, wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := renderFlags
			defer func() { renderFlags = saved }()
			renderFlags.file = tt.file

			got, err := readTemplate(tt.args, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVariableTable(t *testing.T) {
	table := newVariableTable("{{greeting}}, {{ name }}! {{greeting}} again", map[string]string{"name": "Ada"})

	rows := table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 distinct variables, got %v", rows)
	}
	if rows[0][0] != "greeting" || rows[0][1] != "missing" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1][0] != "name" || rows[1][1] != "set" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestWriteEstimate(t *testing.T) {
	est := tokens.New(tokens.Config{}).Prompt("abcdefgh", "", "", 0)

	var buf bytes.Buffer
	writeEstimate(&buf, est)

	want := "~9 input tokens (default: prompt 2, system 0, overhead 7), ~109 with completion\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
