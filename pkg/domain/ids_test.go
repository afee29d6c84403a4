package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tavola/pkg/domain-errors"
)

// TestParseOrderID_Invariants validates that order ids are valid, non-nil UUIDs.
func TestParseOrderID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOrderID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseOrderID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseOrderID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseOrderID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, OrderID(valid), id)
		assert.Equal(t, "order-"+valid.String(), id.StreamID())
	})
}

func TestParseOrderID_HostileInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"SQL injection attempt", "'; DROP TABLE events;--"},
		{"Path traversal", "../../../etc/passwd"},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000"},
		{"Oversized input", strings.Repeat("a", 1000)},
		{"Whitespace only", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderID(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseNumericIDs(t *testing.T) {
	t.Run("accepts positive values", func(t *testing.T) {
		loc, err := ParseLocationID("2")
		require.NoError(t, err)
		assert.Equal(t, LocationID(2), loc)

		biz, err := ParseBusinessID(" 7 ")
		require.NoError(t, err)
		assert.Equal(t, BusinessID(7), biz)
	})

	for _, input := range []string{"", "0", "-4", "abc", "1.5"} {
		t.Run("rejects "+input, func(t *testing.T) {
			_, errLoc := ParseLocationID(input)
			_, errItem := ParseItemID(input)
			_, errBiz := ParseBusinessID(input)
			assert.True(t, dErrors.HasCode(errLoc, dErrors.CodeInvalidInput))
			assert.True(t, dErrors.HasCode(errItem, dErrors.CodeInvalidInput))
			assert.True(t, dErrors.HasCode(errBiz, dErrors.CodeInvalidInput))
		})
	}
}

func TestParseOrderType(t *testing.T) {
	ot, err := ParseOrderType("dine_in")
	require.NoError(t, err)
	assert.Equal(t, OrderTypeDineIn, ot)

	_, err = ParseOrderType("drive_thru")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseOrderType("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}
	a, b := gen.NewOrderID(), gen.NewOrderID()
	assert.False(t, a.IsNil())
	assert.NotEqual(t, a, b)
}

func TestOrderIDFromStream(t *testing.T) {
	orderID := UUIDGenerator{}.NewOrderID()

	got, err := OrderIDFromStream(orderID.StreamID())
	require.NoError(t, err)
	assert.Equal(t, orderID, got)

	_, err = OrderIDFromStream("table-" + orderID.String())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestOrderID_TextRoundTrip(t *testing.T) {
	orderID := UUIDGenerator{}.NewOrderID()

	text, err := orderID.MarshalText()
	require.NoError(t, err)

	var decoded OrderID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, orderID, decoded)
	assert.Error(t, decoded.UnmarshalText([]byte("nope")))
}
