package feature

// Category is a closed building classification derived from tags. It selects
// the roof style, pitch angle and facade texture.
type Category string

const (
	CategoryTerraced   Category = "terraced"
	CategoryApartments Category = "apartments"
	CategoryCommercial Category = "commercial"
	CategoryIndustrial Category = "industrial"
	CategoryGarage     Category = "garage"
	CategoryChurch     Category = "church"
	CategorySchool     Category = "school"
)

// Classify maps the raw tag set plus the resolved height to a category.
// Explicit building values win; shop/amenity/office tags are consulted next;
// otherwise the height decides between garage, apartments and the terraced
// default.
func Classify(tags Tags, height float64) Category {
	switch tags.Get("building") {
	case "house", "detached", "semidetached_house", "terrace", "terraced_house":
		return CategoryTerraced
	case "apartments", "residential", "flats":
		return CategoryApartments
	case "commercial", "retail", "shop":
		return CategoryCommercial
	case "industrial", "warehouse", "factory":
		return CategoryIndustrial
	case "garage", "garages", "shed":
		return CategoryGarage
	case "church", "chapel":
		return CategoryChurch
	}

	if tags.Has("shop") {
		return CategoryCommercial
	}
	switch tags.Get("amenity") {
	case "school", "college", "university":
		return CategorySchool
	}
	if tags.Has("office") {
		return CategoryCommercial
	}

	if height < 5 {
		return CategoryGarage
	}
	if height > 15 {
		return CategoryApartments
	}
	return CategoryTerraced
}

// Pitched reports whether the category gets a pitched roof; the others are
// built with a flat cap.
func (c Category) Pitched() bool {
	switch c {
	case CategoryTerraced, CategoryGarage, CategoryChurch:
		return true
	}
	return false
}

// PitchDegrees returns the roof pitch angle for the category.
func (c Category) PitchDegrees(pitches map[string]float64) float64 {
	if v, ok := pitches[string(c)]; ok {
		return v
	}
	return 30
}
