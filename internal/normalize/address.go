package normalize

import (
	"context"
	"regexp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/tim-schilling/publicworks/internal/model"
)

// Sentinel is the literal the source system writes for a true flag.
const Sentinel = "TRUE"

// Address column names in every import file.
const (
	ColStreetNumber     = "Street Number"
	ColStreetDirection  = "Street Direction"
	ColStreetName       = "Street Name"
	ColStreetType       = "Street Type"
	ColStreetSuffix     = "Street Suffix"
	ColZipCode          = "Zip Code"
	ColOtherAddress     = "Other Address"
	ColPrimaryResidence = "Primary Residence"
)

// Street2Columns are joined into Address.Street2.
var Street2Columns = []string{"Street 2 Line 1", "Street 2 Line 2", "Street 2 Line 3"}

const zipLength = 5

var reSpaces = regexp.MustCompile(`\s+`)

// Row is a single source record addressed by column name.
type Row interface {
	Lookup(column string) (string, bool)
}

// Text trims s and collapses internal whitespace runs to one space. Case is kept.
func Text(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

func field(row Row, column string) string {
	v, _ := row.Lookup(column)
	return Text(v)
}

// Fields builds the normalized address carried by row.
func Fields(row Row) model.Address {
	zip := []rune(field(row, ColZipCode))
	if len(zip) > zipLength {
		zip = zip[:zipLength]
	}

	var street2 []string
	for _, col := range Street2Columns {
		if v := field(row, col); v != "" {
			street2 = append(street2, v)
		}
	}

	other := "False"
	if raw, _ := row.Lookup(ColOtherAddress); raw == Sentinel {
		other = "True"
	}
	primary, _ := row.Lookup(ColPrimaryResidence)

	return model.Address{
		StreetNumber:     field(row, ColStreetNumber),
		StreetDirection:  field(row, ColStreetDirection),
		StreetName:       field(row, ColStreetName),
		StreetType:       field(row, ColStreetType),
		StreetSuffix:     field(row, ColStreetSuffix),
		Zipcode:          string(zip),
		Street2:          strings.Join(street2, " "),
		Other:            other,
		PrimaryResidence: primary == Sentinel,
	}
}

// IsBlank reports whether a carries no address information at all.
func IsBlank(a model.Address) bool {
	return a.SameAs(model.Address{Other: "False"})
}

// AddressStore is the persistence the resolver needs.
type AddressStore interface {
	GetOrCreateAddress(ctx context.Context, addr model.Address) (*model.Address, error)
}

// Resolver maps rows to deduplicated addresses.
type Resolver struct {
	store AddressStore
}

// NewResolver creates a resolver backed by s.
func NewResolver(s AddressStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the stored address equal to the row's normalized fields,
// creating it on a miss. A row with no address data resolves to nil.
func (r *Resolver) Resolve(ctx context.Context, row Row) (*model.Address, error) {
	addr := Fields(row)
	if IsBlank(addr) {
		return nil, nil
	}
	found, err := r.store.GetOrCreateAddress(ctx, addr)
	if err != nil {
		return nil, errors.Wrap(err, "resolve address")
	}
	return found, nil
}
