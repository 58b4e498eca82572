package prayer

import "strings"

// City is a selectable location. APIName is what the upstream API expects and
// also scopes every cache entry.
type City struct {
	NameAr  string
	APIName string
}

var Cities = []City{
	{NameAr: "تونس", APIName: "Tunis"},
	{NameAr: "صفاقس", APIName: "Sfax"},
	{NameAr: "سوسة", APIName: "Sousse"},
	{NameAr: "قابس", APIName: "Gabes"},
	{NameAr: "القيروان", APIName: "Kairouan"},
	{NameAr: "بنزرت", APIName: "Bizerte"},
	{NameAr: "نابل", APIName: "Nabeul"},
	{NameAr: "مدنين", APIName: "Medenine"},
}

// LookupCity finds a city by API name or Arabic name.
func LookupCity(name string) (City, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Cities {
		if strings.EqualFold(c.APIName, name) || c.NameAr == name {
			return c, true
		}
	}
	return City{}, false
}
