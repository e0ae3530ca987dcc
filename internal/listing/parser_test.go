package listing

import (
	"errors"
	"testing"
)

func TestParseMessage(t *testing.T) {
	cases := []struct {
		in          string
		wantProduct string
		wantQty     string
	}{
		{"Tomato 30 kg", "Tomato", "30 kg"},
		{"Onion 50kg", "Onion", "50kg"},
		{"Potato 20 kg", "Potato", "20 kg"},
		{"Tomato 30", "Tomato", "30"},
		{"Green Chilli 5 kg", "Green Chilli", "5 kg"},
		{"Basmati Rice 2 quintals", "Basmati Rice", "2 quintals"},
		{"Wheat 1 TON", "Wheat", "1 TON"},
		{"Brinjal 10KGS", "Brinjal", "10KGS"},
		{"Tomato kg 30", "Tomato", "kg 30"},
		{"  Carrot   15 kg  ", "Carrot", "15 kg"},
	}
	for _, tc := range cases {
		got, err := ParseMessage(tc.in)
		if err != nil {
			t.Errorf("ParseMessage(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got.ProductName != tc.wantProduct || got.Quantity != tc.wantQty {
			t.Errorf("ParseMessage(%q) = (%q, %q), want (%q, %q)",
				tc.in, got.ProductName, got.Quantity, tc.wantProduct, tc.wantQty)
		}
	}
}

func TestParseMessageFailures(t *testing.T) {
	for _, in := range []string{"", "X", "   ", "Tomato"} {
		if _, err := ParseMessage(in); !errors.Is(err, ErrUnparseable) {
			t.Errorf("ParseMessage(%q) expected ErrUnparseable, got %v", in, err)
		}
	}
}
