package cluster

import "testing"

func TestParseChassisCSV(t *testing.T) {
	raw := "name,hostname\n\"host1\",\"host1.local\"\n\"host2\",\"host2.local\"\n"

	chassis, err := parseChassisCSV(raw)
	if err != nil {
		t.Fatal(err)
	}

	if len(chassis) != 2 || !chassis["host1"] || !chassis["host2"] {
		t.Fatalf("unexpected chassis set: %+v", chassis)
	}
}

func TestParseChassisCSVEmpty(t *testing.T) {
	chassis, err := parseChassisCSV("name,hostname\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(chassis) != 0 {
		t.Fatalf("expected no chassis, got %+v", chassis)
	}
}

func TestInferSubnet(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1":      "10.0.0.1/24",
		"10.0.0.1/16":   "10.0.0.1/16",
		"192.168.1.1/8": "192.168.1.1/8",
	}

	for in, want := range cases {
		if got := InferSubnet(in); got != want {
			t.Errorf("InferSubnet(%q) = %q, want %q", in, got, want)
		}
	}
}
