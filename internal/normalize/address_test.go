package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-schilling/publicworks/internal/model"
	"github.com/tim-schilling/publicworks/internal/store"
)

type row map[string]string

func (r row) Lookup(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		in   row
		want model.Address
	}{
		{
			name: "collapses whitespace and keeps case",
			in: row{
				ColStreetNumber: " 120 ",
				ColStreetName:   "North   Main",
				ColStreetType:   "St",
				ColZipCode:      "62701-1234",
			},
			want: model.Address{StreetNumber: "120", StreetName: "North Main", StreetType: "St", Zipcode: "62701", Other: "False"},
		},
		{
			name: "street 2 joins non-empty lines",
			in: row{
				"Street 2 Line 1": "Suite 4",
				"Street 2 Line 2": "  ",
				"Street 2 Line 3": "Rear",
			},
			want: model.Address{Street2: "Suite 4 Rear", Other: "False"},
		},
		{
			name: "flags use the exact sentinel",
			in: row{
				ColStreetName:       "Oak",
				ColOtherAddress:     "TRUE",
				ColPrimaryResidence: "True",
			},
			want: model.Address{StreetName: "Oak", Other: "True"},
		},
		{
			name: "primary residence",
			in:   row{ColPrimaryResidence: "TRUE"},
			want: model.Address{Other: "False", PrimaryResidence: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fields(tt.in))
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "a b c", Text("  a \t b\n\nc "))
	assert.Equal(t, "", Text("   "))
}

func TestResolveDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	r := NewResolver(s)

	base := row{ColStreetNumber: "12", ColStreetName: "Main", ColStreetType: "St", ColZipCode: "62701"}
	a, err := r.Resolve(ctx, base)
	require.NoError(t, err)
	require.NotNil(t, a)

	same := row{ColStreetNumber: "12", ColStreetName: " Main ", ColStreetType: "St", ColZipCode: "62701"}
	b, err := r.Resolve(ctx, same)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	other := row{ColStreetNumber: "12", ColStreetName: "Main", ColStreetType: "St", ColZipCode: "62702"}
	c, err := r.Resolve(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[store.TableAddress])
}

func TestResolveBlankRow(t *testing.T) {
	s := store.NewMemoryStore()
	a, err := NewResolver(s).Resolve(context.Background(), row{ColStreetName: "  ", ColOtherAddress: "no"})
	require.NoError(t, err)
	assert.Nil(t, a)
}
