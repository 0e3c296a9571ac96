package nlp

import "testing"

func TestPriceCeiling(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{in: "ميزانيتي 300 ألف", want: 300000},
		{in: "حوالي ١.٥ مليون", want: 1500000},
		{in: "budget 300k", want: 300000},
		{in: "1,200,000 جنيه", want: 1200000},
		{in: "بين 200 و 400 الف", want: 400000},
		{in: "موديل 2024", want: 0},
		{in: "عايز عربية", want: 0},
		{in: "عربية ماشية 50000 km", want: 0},
		{in: "ماشية 80000 كم وسعرها 600 الف", want: 600000},
		{in: "موتور 1500 cc", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := testLex.PriceCeiling(tt.in); !near(got, tt.want) {
				t.Fatalf("PriceCeiling(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMileageIsNotAPriceTerm(t *testing.T) {
	for _, message := range []string{"عربية ماشية 50000 km", "ماشية 120000km"} {
		if testLex.hasPriceTerm(Tokens(message)) {
			t.Fatalf("%q: mileage must not count as a budget", message)
		}
	}
	if !testLex.hasPriceTerm(Tokens("عايز حاجة ب 300000")) {
		t.Fatalf("a bare thousands amount is still a budget")
	}
}

func TestExtractFeatures(t *testing.T) {
	got := testLex.ExtractFeatures("عايز عربية كهربا اوتوماتيك سيدان تحت 300 الف")
	if got.Fuel != "electric" || got.Transmission != "automatic" || got.Body != "sedan" {
		t.Fatalf("unexpected features %+v", got)
	}
	if !near(got.PriceCeiling, 300000) {
		t.Fatalf("expected ceiling 300000, got %v", got.PriceCeiling)
	}
	if f := testLex.ExtractFeatures("MG ZS"); !f.Empty() {
		t.Fatalf("expected no features, got %+v", f)
	}
}

func TestCandidatePrice(t *testing.T) {
	price, ok := testLex.CandidatePrice("MG ZS price 1,050,000 EGP")
	if !ok || !near(price, 1050000) {
		t.Fatalf("expected 1050000, got %v ok=%v", price, ok)
	}

	price, ok = testLex.CandidatePrice("Starting from EGP 950,000")
	if !ok || !near(price, 950000) {
		t.Fatalf("expected 950000, got %v ok=%v", price, ok)
	}

	if _, ok = testLex.CandidatePrice("no price listed"); ok {
		t.Fatalf("expected no price")
	}
}
