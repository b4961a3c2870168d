package models

import "strings"

// Department classifies an issue and names the government unit responsible for it.
type Department string

const (
	Roads        Department = "roads"
	Lighting     Department = "lighting"
	Water        Department = "water"
	Cleanliness  Department = "cleanliness"
	Safety       Department = "safety"
	Obstructions Department = "obstructions"
)

// Departments lists every department in display order.
var Departments = []Department{Roads, Lighting, Water, Cleanliness, Safety, Obstructions}

func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDepartment accepts any casing and surrounding whitespace.
func ParseDepartment(s string) (Department, bool) {
	d := Department(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}
