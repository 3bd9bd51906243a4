package core

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "iso", input: "2023-02-01", want: "2023-02-01"},
		{name: "iso with surrounding spaces", input: " 2023-02-01 ", want: "2023-02-01"},
		{name: "dotted day first", input: "01.02.2023", want: "2023-02-01"},
		{name: "iso with time", input: "2023-02-01 13:45:00", want: "2023-02-01"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "yesterday", wantErr: true},
		{name: "month only is not a date", input: "2023-02", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error, got %v", tt.input, d)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q): %v", tt.input, err)
			}
			if d.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, d, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	d, structured, err := ParsePeriod("2023-02")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if structured {
		t.Error("month-only period should not be structured")
	}
	if d.String() != "2023-02-01" {
		t.Errorf("period = %s, want 2023-02-01", d)
	}

	d, structured, err = ParsePeriod("2023-02-15")
	if err != nil {
		t.Fatalf("ParsePeriod: %v", err)
	}
	if !structured {
		t.Error("full date period should be structured")
	}
	if d.Day() != 15 {
		t.Errorf("day = %d, want 15", d.Day())
	}
}

func TestDateDaysUntil(t *testing.T) {
	a := NewDate(2023, 3, 1)
	b := NewDate(2023, 3, 11)
	if got := a.DaysUntil(b); got != 10 {
		t.Errorf("DaysUntil = %d, want 10", got)
	}
	if got := b.DaysUntil(a); got != -10 {
		t.Errorf("DaysUntil reversed = %d, want -10", got)
	}
}

func TestDateJSON(t *testing.T) {
	type payload struct {
		When Date `json:"when"`
	}

	out, err := json.Marshal(payload{When: NewDate(2023, 1, 2)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"when":"2023-01-02"}` {
		t.Errorf("marshal = %s", out)
	}

	out, err = json.Marshal(payload{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"when":null}` {
		t.Errorf("marshal zero = %s", out)
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"when":"2023-01-02"}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.When.String() != "2023-01-02" {
		t.Errorf("unmarshal = %s", p.When)
	}

	if err := json.Unmarshal([]byte(`{"when":null}`), &p); err != nil {
		t.Fatal(err)
	}
	if !p.When.IsZero() {
		t.Errorf("unmarshal null should give zero date, got %s", p.When)
	}
}
