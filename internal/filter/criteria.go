// Package filter narrows a prepared project table by user-chosen criteria.
package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// ErrInvalidCriteria is returned for criteria that fail binding or validation.
var ErrInvalidCriteria = eris.New("invalid criteria")

// YearRange is an inclusive funding-year window.
type YearRange struct {
	Min int `json:"min" validate:"gte=0"`
	Max int `json:"max" validate:"gtefield=Min"`
}

// Criteria is the set of user filter choices. The zero value selects everything.
type Criteria struct {
	NameContains   string     `json:"name,omitempty" validate:"max=200"`
	IDContains     string     `json:"id,omitempty" validate:"max=100"`
	Regions        []string   `json:"regions,omitempty" validate:"max=100,dive,required"`
	Provinces      []string   `json:"provinces,omitempty" validate:"max=200,dive,required"`
	TypesOfWork    []string   `json:"types_of_work,omitempty" validate:"max=100,dive,required"`
	Contractors    []string   `json:"contractors,omitempty" validate:"max=500,dive,required"`
	MainIslands    []string   `json:"main_islands,omitempty" validate:"max=10,dive,required"`
	YearRange      *YearRange `json:"year_range,omitempty"`
	SuspiciousOnly bool       `json:"suspicious_only,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field limits and that the year range is ordered.
func (c Criteria) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(ErrInvalidCriteria, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag())
	}
	return eris.Wrapf(ErrInvalidCriteria, "filter: %s", strings.Join(msgs, "; "))
}

// IsZero reports whether the criteria select every row.
func (c Criteria) IsZero() bool {
	return c.NameContains == "" && c.IDContains == "" &&
		len(c.Regions) == 0 && len(c.Provinces) == 0 && len(c.TypesOfWork) == 0 &&
		len(c.Contractors) == 0 && len(c.MainIslands) == 0 &&
		c.YearRange == nil && !c.SuspiciousOnly
}

// Key returns a stable digest of the criteria. Criteria that select the same rows
// regardless of value order share a key.
func (c Criteria) Key() string {
	n := c.normalized()
	b, _ := json.Marshal(n)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:12])
}

func (c Criteria) normalized() Criteria {
	n := c
	n.Regions = sortedSet(c.Regions)
	n.Provinces = sortedSet(c.Provinces)
	n.TypesOfWork = sortedSet(c.TypesOfWork)
	n.Contractors = sortedSet(c.Contractors)
	n.MainIslands = sortedSet(c.MainIslands)
	if c.YearRange != nil {
		yr := *c.YearRange
		n.YearRange = &yr
	}
	return n
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// FromQuery binds criteria from URL query parameters:
//
//	name, id, region, province, type_of_work, contractor, main_island,
//	year_min, year_max, suspicious
//
// List parameters repeat (region=A&region=B). A single year bound leaves the other open.
func FromQuery(q url.Values) (Criteria, error) {
	c := Criteria{
		NameContains: strings.TrimSpace(q.Get("name")),
		IDContains:   strings.TrimSpace(q.Get("id")),
		Regions:      listParam(q, "region"),
		Provinces:    listParam(q, "province"),
		TypesOfWork:  listParam(q, "type_of_work"),
		Contractors:  listParam(q, "contractor"),
		MainIslands:  listParam(q, "main_island"),
	}

	minStr, maxStr := q.Get("year_min"), q.Get("year_max")
	if minStr != "" || maxStr != "" {
		yr := YearRange{Min: 0, Max: 9999}
		var err error
		if minStr != "" {
			if yr.Min, err = strconv.Atoi(minStr); err != nil {
				return Criteria{}, eris.Wrapf(ErrInvalidCriteria, "filter: year_min %q", minStr)
			}
		}
		if maxStr != "" {
			if yr.Max, err = strconv.Atoi(maxStr); err != nil {
				return Criteria{}, eris.Wrapf(ErrInvalidCriteria, "filter: year_max %q", maxStr)
			}
		}
		c.YearRange = &yr
	}

	if s := q.Get("suspicious"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Criteria{}, eris.Wrapf(ErrInvalidCriteria, "filter: suspicious %q", s)
		}
		c.SuspiciousOnly = b
	}

	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
