package textnorm

import "testing"

func TestFold(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"José Pérez", "jose perez"},
		{"  Nicolás ", "nicolas"},
		{"MARÍA RODRÍGUEZ", "maria rodriguez"},
		{"nuñez", "nunez"},
		{"plain ascii", "plain ascii"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Fold(tc.in); got != tc.want {
			t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("José Pérez", "jose perez") {
		t.Error("expected accent-insensitive match")
	}
	if !ContainsFold("Carmen Vásquez", "VASQUEZ") {
		t.Error("expected case-insensitive match")
	}
	if ContainsFold("Ana López", "torres") {
		t.Error("unexpected match")
	}
	if !ContainsFold("anything", "") {
		t.Error("empty needle should match")
	}
}
