package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ItemSize is the physical size class of a catalog item.
type ItemSize int16

const (
	SizeSmall ItemSize = iota
	SizeMedium
	SizeLarge
)

var sizeNames = [...]string{"Small", "Medium", "Large"}

func (s ItemSize) Valid() bool {
	return s >= SizeSmall && s <= SizeLarge
}

func (s ItemSize) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ItemSize(%d)", int16(s))
	}
	return sizeNames[s]
}

func (s ItemSize) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid item size %d", int16(s))
	}
	return []byte(sizeNames[s]), nil
}

// UnmarshalText accepts either the size name or its numeric value.
func (s *ItemSize) UnmarshalText(text []byte) error {
	size, err := ParseItemSize(string(text))
	if err != nil {
		return err
	}
	*s = size
	return nil
}

// UnmarshalJSON accepts a size name or a bare number. Out-of-range numbers are
// kept so that ItemSpec.Validate can report them.
func (s *ItemSize) UnmarshalJSON(b []byte) error {
	var n int16
	if err := json.Unmarshal(b, &n); err == nil {
		*s = ItemSize(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("invalid item size %s", b)
	}
	return s.UnmarshalText([]byte(name))
}

// ParseItemSize parses "Small", "Medium", "Large" (any case) or "0".."2".
func ParseItemSize(v string) (ItemSize, error) {
	for i, name := range sizeNames {
		if strings.EqualFold(v, name) {
			return ItemSize(i), nil
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil || !ItemSize(n).Valid() {
		return 0, fmt.Errorf("invalid item size %q", v)
	}
	return ItemSize(n), nil
}

// Item is a catalog entry. Quantity is the number of units that may ever be
// checked out, not the number currently on hand.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Quantity    int       `json:"quantity"`
	Size        ItemSize  `json:"size"`
	Infinite    bool      `json:"infinite"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemSpec holds the mutable fields of an Item for create and update.
type ItemSpec struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Quantity    int      `json:"quantity"`
	Size        ItemSize `json:"size"`
	Infinite    bool     `json:"infinite"`
}

// Validate reports every violated field at once.
func (s ItemSpec) Validate() error {
	verr := &ValidationError{}
	if len(s.Name) < 1 {
		verr.Add("name", "must be at least 1 character long")
	}
	if s.Quantity < 1 {
		verr.Add("quantity", "must be at least 1")
	}
	if !s.Size.Valid() {
		verr.Add("size", "must be one of Small, Medium, Large")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ItemFilter narrows a catalog listing. Nil fields impose no constraint.
type ItemFilter struct {
	Name        *string
	Description *string
	Size        *ItemSize
	Infinite    *bool
	PageNum     int
	PageSize    int
}

// ItemPage is one page of a catalog listing.
type ItemPage struct {
	Items        []*Item `json:"items"`
	PageNum      int     `json:"page_num"`
	PageSize     int     `json:"page_size"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Checkout is one withdrawal of an item. The row with Done == false, if any,
// is the current checkout.
type Checkout struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	RoundsLeft  int       `json:"rounds_left"`
	RoundsTotal int       `json:"rounds_total"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Availability summarises how much of an item has been consumed.
// Remaining is nil for infinite items.
type Availability struct {
	ItemID    int64 `json:"item_id"`
	Consumed  int   `json:"consumed"`
	Remaining *int  `json:"remaining"`
}

func (a Availability) Available() bool {
	return a.Remaining == nil || *a.Remaining >= 1
}
