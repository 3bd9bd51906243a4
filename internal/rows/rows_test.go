package rows

import (
	"reflect"
	"testing"
)

func TestFromMatrix(t *testing.T) {
	set := FromMatrix([][]any{
		{" id ", "login", "registration_date"},
		{float64(1), "alice", "2023-01-01"},
		{float64(2), "bob", ""},
		{float64(3)},
	})

	if !reflect.DeepEqual(set.Columns, []string{"id", "login", "registration_date"}) {
		t.Errorf("columns = %v", set.Columns)
	}
	if len(set.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(set.Rows))
	}

	if v, ok := set.Rows[0].Get("id"); !ok || v != "1" {
		t.Errorf("row 0 id = %q, %v", v, ok)
	}
	if _, ok := set.Rows[1].Get("registration_date"); ok {
		t.Error("empty cell should read as absent")
	}
	if _, ok := set.Rows[2].Get("login"); ok {
		t.Error("short row should leave trailing columns absent")
	}
}

func TestFromMatrixEmpty(t *testing.T) {
	set := FromMatrix(nil)
	if len(set.Columns) != 0 || len(set.Rows) != 0 {
		t.Errorf("empty matrix should give empty set, got %+v", set)
	}
}

func TestFromRecords(t *testing.T) {
	set := FromRecords([]map[string]any{
		{"id": float64(10), "name": "body"},
		{"id": float64(11), "name": " interest "},
	})

	if len(set.Columns) != 2 {
		t.Fatalf("columns = %v", set.Columns)
	}
	if v, _ := set.Rows[0].Get("id"); v != "10" {
		t.Errorf("id = %q, want 10 (no decimal point)", v)
	}
	if v, _ := set.Rows[1].Get("name"); v != "interest" {
		t.Errorf("name = %q, want trimmed value", v)
	}
}

func TestRowGetTrims(t *testing.T) {
	r := Row{"login": "  alice  ", "blank": "   "}
	if v, ok := r.Get("login"); !ok || v != "alice" {
		t.Errorf("Get(login) = %q, %v", v, ok)
	}
	if _, ok := r.Get("blank"); ok {
		t.Error("whitespace-only value should read as absent")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("missing key should read as absent")
	}
}
