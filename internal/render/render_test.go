package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/order"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Format: FormatTable})
	err := r.Render(nil, []string{"ID", "TITLE"}, [][]string{
		{"C-00001", "Todo"},
		{"C-00002", "In review"},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "ID       TITLE\n" +
		"-------  ---------\n" +
		"C-00001  Todo\n" +
		"C-00002  In review\n"
	if buf.String() != want {
		t.Errorf("table mismatch:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderTable_Porcelain(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Porcelain: true})
	if err := r.RenderTable([]string{"ID", "TITLE"}, [][]string{{"T-00001", "a"}}); err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if buf.String() != "ID\tTITLE\nT-00001\ta\n" {
		t.Errorf("unexpected porcelain output: %q", buf.String())
	}
}

func TestRender_JSONAndYAML(t *testing.T) {
	data := map[string]any{"id": "B-00001", "name": "Roadmap"}

	var buf bytes.Buffer
	if err := NewRenderer(&buf, Options{Format: FormatJSON}).Render(data, nil, nil); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "Roadmap"`) {
		t.Errorf("unexpected json: %s", buf.String())
	}

	buf.Reset()
	if err := NewRenderer(&buf, Options{Format: FormatYAML}).Render(data, nil, nil); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "name: Roadmap") {
		t.Errorf("unexpected yaml: %s", buf.String())
	}
}

func TestLayout(t *testing.T) {
	snap := order.NewSnapshot(domain.Board{ID: "B-00001", Name: "Sprint"}, []domain.Column{
		{ID: "C-00001", Title: "Todo", Position: 0, Tasks: []domain.Task{
			{ID: "T-00001", Title: "a", Position: 0},
			{ID: "T-00002", Title: "b", Position: 1},
		}},
		{ID: "C-00002", Title: "Done", Position: 1},
	})

	var buf bytes.Buffer
	if err := NewRenderer(&buf, Options{}).RenderBoard(snap); err != nil {
		t.Fatalf("RenderBoard failed: %v", err)
	}
	want := "B-00001 Sprint\n" +
		"  [0] C-00001 Todo\n" +
		"      [0] T-00001 a\n" +
		"      [1] T-00002 b\n" +
		"  [1] C-00002 Done\n" +
		"      (empty)\n"
	if buf.String() != want {
		t.Errorf("layout mismatch:\n%s\nwant:\n%s", buf.String(), want)
	}
}
