// Package criteria extracts dataset filter criteria from a question for the
// recommendation and status handlers.
package criteria

import "github.com/toondesk/toondesk/ai/structured"

// AgeBand is an age-band criterion. The canonical values double as the
// age-affinity column names of the catalog dataset.
type AgeBand string

// Age bands.
const (
	AgeBandTeens20s AgeBand = "10~20대"
	AgeBand30s      AgeBand = "30대"
	AgeBand40s      AgeBand = "40대"
	AgeBandUnset    AgeBand = ""
)

// Gender is a gender-preference criterion.
type Gender string

// Genders.
const (
	GenderMale   Gender = "남성"
	GenderFemale Gender = "여성"
	GenderUnset  Gender = ""
)

// Criteria narrows the catalog before ranking. The zero value is the
// fully-unset variant: no filtering.
type Criteria struct {
	Category string  `json:"카테고리"`
	AgeBand  AgeBand `json:"연령층"`
	Gender   Gender  `json:"성별"`
}

// schema validates model extraction output.
var schema = structured.Schema{Fields: []structured.Field{
	{Name: "카테고리", Kind: structured.KindString, Optional: true},
	{
		Name:     "연령층",
		Kind:     structured.KindLabel,
		Optional: true,
		Literals: []string{string(AgeBandTeens20s), string(AgeBand30s), string(AgeBand40s), ""},
	},
	{
		Name:     "성별",
		Kind:     structured.KindLabel,
		Optional: true,
		Literals: []string{string(GenderMale), string(GenderFemale), ""},
	},
}}
