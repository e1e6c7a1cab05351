package residency

import (
	"strconv"
	"strings"

	"github.com/iannini25/auxiliosindico-web/core"
	"github.com/iannini25/auxiliosindico-web/core/docstore"
)

const (
	// Capacity is the number of resident accounts an apartment may hold.
	Capacity = 2

	minApartment = 201
	maxApartment = 604
)

var (
	floors = map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true}
	units  = map[int]bool{1: true, 2: true, 3: true, 4: true}
)

// IsValidApartment reports whether n = floor*100 + unit names an apartment of the building:
// floors 2 to 6, units 1 to 4. Both the floor/unit check and the absolute bounds must hold.
func IsValidApartment(n int) bool {
	floor, unit := n/100, n%100
	return floors[floor] && units[unit] && n >= minApartment && n <= maxApartment
}

// ParseApartment reads an apartment number typed by a person ("604", " 604 ").
func ParseApartment(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || !IsValidApartment(n) {
		return 0, false
	}
	return n, true
}

// Apartment is the occupancy record kept at apartments/{number}.
type Apartment struct {
	Number    int      `json:"number"`
	Count     int      `json:"count"`
	Residents []string `json:"residents"`
}

func apartmentFromDoc(n int, data docstore.Data) Apartment {
	return Apartment{
		Number:    n,
		Count:     docstore.Int(data["count"]),
		Residents: docstore.Strings(data["residents"]),
	}
}

func (a Apartment) HasResident(accountID string) bool {
	for _, id := range a.Residents {
		if id == accountID {
			return true
		}
	}
	return false
}

// DeriveSecret computes the login secret of an apartment: its digits, repeated up to at least
// identity.MinSecretLen characters and cut to 72. It returns "" when raw has no digits.
func DeriveSecret(raw string) string {
	digits := core.DigitsOnly(raw)
	if digits == "" {
		return ""
	}
	secret := digits
	for len(secret) < minSecretLen {
		secret += digits
	}
	if len(secret) > maxSecretLen {
		secret = secret[:maxSecretLen]
	}
	return secret
}

// LegacySecret is the secret of accounts created before padding was introduced: the bare digits.
func LegacySecret(raw string) string {
	return core.DigitsOnly(raw)
}
