package nlp

import "testing"

func TestGateDecide(t *testing.T) {
	gate := NewGate(testLex)
	tests := []struct {
		name    string
		message string
		history int
		want    bool
		reason  GateReason
	}{
		{name: "english greeting", message: "hi", history: 0, want: false, reason: GateGreeting},
		{name: "arabic greeting", message: "السلام عليكم", history: 1, want: false, reason: GateGreeting},
		{name: "short follow up", message: "ok", history: 1, want: false, reason: GateShortFollowUp},
		{name: "brand", message: "عايز MG", history: 0, want: true, reason: GateCriteria},
		{name: "greeting with brand", message: "hi BMW", history: 0, want: true, reason: GateCriteria},
		{name: "short brand follow up", message: "BMW", history: 3, want: true, reason: GateCriteria},
		{name: "budget", message: "ميزانيتي 300 ألف", history: 0, want: true, reason: GateCriteria},
		{name: "fuel term", message: "عايز عربية كهربا", history: 0, want: true, reason: GateCriteria},
		{name: "body term", message: "محتاج حاجة سيدان", history: 0, want: true, reason: GateCriteria},
		{name: "price question", message: "هي بكام", history: 0, want: true, reason: GateCriteria},
		{name: "long conversation", message: "عايز عربية حلوة للعيلة", history: 4, want: true, reason: GateLongConversation},
		{name: "no criteria", message: "عايز عربية حلوة للعيلة", history: 0, want: false, reason: GateNoCriteria},
		{name: "mileage only", message: "عربية ماشية 50000 km", history: 0, want: false, reason: GateNoCriteria},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := gate.Decide(tt.message, makeHistory(tt.history))
			if decision.Search != tt.want || decision.Reason != tt.reason {
				t.Fatalf("Decide(%q) = %+v, want search=%v reason=%s", tt.message, decision, tt.want, tt.reason)
			}
		})
	}
}

func TestGateBrandAlwaysSearches(t *testing.T) {
	gate := NewGate(testLex)
	for _, message := range []string{"MG", "تويوتا", "بي ام دبليو", "hello kia"} {
		for n := 0; n <= 8; n++ {
			if !gate.ShouldSearch(message, makeHistory(n)) {
				t.Fatalf("message %q history %d: expected search", message, n)
			}
		}
	}
}
