package domain

import "strings"

var platformRegions = map[string]string{
	"br1":  "americas",
	"la1":  "americas",
	"la2":  "americas",
	"na1":  "americas",
	"eun1": "europe",
	"euw1": "europe",
	"me1":  "europe",
	"ru":   "europe",
	"tr1":  "europe",
	"jp1":  "asia",
	"kr":   "asia",
	"oc1":  "sea",
	"ph2":  "sea",
	"sg2":  "sea",
	"th2":  "sea",
	"tw2":  "sea",
	"vn2":  "sea",
}

// RegionForPlatform maps a platform routing value (euw1) to its regional cluster (europe).
func RegionForPlatform(platform string) string {
	if region, ok := platformRegions[strings.ToLower(platform)]; ok {
		return region
	}
	return "europe"
}
