//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParseOrderID checks that parsing never panics and that every accepted
// id round-trips through String.
func FuzzParseOrderID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE events;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseOrderID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Fatal("accepted nil order id")
		}
		roundTrip, err := ParseOrderID(id.String())
		if err != nil {
			t.Fatalf("valid id failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Fatal("round-trip changed id value")
		}
	})
}
