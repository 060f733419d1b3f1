package domain

import "strings"

const placeholderImage = "Placeholder.jpg"

type Category struct {
	Name  string
	Image string
}

var knownCategories = []Category{
	{Name: "Fruits", Image: "Fruits.jpeg"},
	{Name: "Vegetables", Image: "Vegies.jpeg"},
	{Name: "Grains", Image: "Grains.jpeg"},
	{Name: "Dairy", Image: "Dairy.jpeg"},
}

// product name -> image, per category
var categoryImages = map[string]map[string]string{
	"Fruits": {
		"Apple":  "apple.jpg",
		"Banana": "banana.jpg",
	},
	"Vegetables": {
		"Carrot": "carrot.jpg",
		"Potato": "potato.jpeg",
	},
	"Grains": {
		"Rice":  "rice.jpeg",
		"Wheat": "wheat.jpg",
	},
	"Dairy": {
		"Milk":   "milk.jpg",
		"Cheese": "Dairy.jpeg",
	},
}

// KnownCategories returns a copy of the category catalogue.
func KnownCategories() []Category {
	return append([]Category(nil), knownCategories...)
}

func IsKnownCategory(name string) bool {
	_, ok := categoryImages[name]
	return ok
}

// SearchCategories returns categories whose name contains text,
// ignoring case. Empty text returns the whole catalogue.
func SearchCategories(text string) []Category {
	text = strings.ToLower(text)
	cs := make([]Category, 0, len(knownCategories))
	for _, c := range knownCategories {
		if strings.Contains(strings.ToLower(c.Name), text) {
			cs = append(cs, c)
		}
	}
	return cs
}

// ResolveImage picks the bundled image for a product name,
// falling back to the placeholder.
func ResolveImage(category, name string) string {
	if img, ok := categoryImages[category][name]; ok {
		return img
	}
	return placeholderImage
}
