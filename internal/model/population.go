package model

// AgeBands lists the census age bands in ascending order. Bucket keys are the
// gender prefix followed by the band, e.g. "FEMALE0003".
var AgeBands = []string{
	"0003", "0307", "0812", "1315", "1618", "1924", "2529", "3034", "3539", "4044",
	"4549", "5054", "5559", "6064", "6569", "7074", "7579", "8084", "8589", "9099",
}

// Gender prefixes used in bucket keys.
const (
	GenderFemale = "FEMALE"
	GenderMale   = "MALE"
)

// Buckets returns every bucket key: all female bands followed by all male bands.
func Buckets() []string {
	keys := make([]string, 0, 2*len(AgeBands))
	for _, b := range AgeBands {
		keys = append(keys, GenderFemale+b)
	}
	for _, b := range AgeBands {
		keys = append(keys, GenderMale+b)
	}
	return keys
}

// BandLabel formats a band like "0307" as "03 - 07".
func BandLabel(band string) string {
	if len(band) != 4 {
		return band
	}
	return band[:2] + " - " + band[2:]
}

// PopulationCell is a grid cell of resident population counts by age and gender.
type PopulationCell struct {
	Lat    float64            `json:"lat"`
	Lng    float64            `json:"lng"`
	Counts map[string]float64 `json:"counts"`
}

// Female returns the sum of the female buckets.
func (c PopulationCell) Female() float64 {
	return c.sum(GenderFemale)
}

// Male returns the sum of the male buckets.
func (c PopulationCell) Male() float64 {
	return c.sum(GenderMale)
}

// Total returns Female() + Male().
func (c PopulationCell) Total() float64 {
	return c.Female() + c.Male()
}

func (c PopulationCell) sum(gender string) float64 {
	var total float64
	for _, b := range AgeBands {
		total += c.Counts[gender+b]
	}
	return total
}
