package services

import "github.com/davlet61/costwatch/internal/models"

// allCategories enumerates every notification category so resolved matrices
// are always fully populated.
var allCategories = []models.Category{
	models.CategoryApprovalRequest,
	models.CategoryApprovalResult,
	models.CategoryCostOverrun,
	models.CategoryTaskUpdate,
	models.CategoryDeadline,
	models.CategorySystem,
}

// DefaultPreferences is the conservative system default: in-app delivery on
// for every category, email and push off.
func DefaultPreferences() models.PreferenceMatrix {
	matrix := models.PreferenceMatrix{
		EmailEnabled:      false,
		PushEnabled:       false,
		PriorityThreshold: models.PriorityLow,
		InApp:             make(map[models.Category]bool, len(allCategories)),
		Email:             make(map[models.Category]bool, len(allCategories)),
	}
	for _, cat := range allCategories {
		matrix.InApp[cat] = true
		matrix.Email[cat] = false
	}
	return matrix
}

// ResolvePreferences overlays a user's stored preference blob onto the system
// defaults, field by field. A missing or partial blob is the expected common
// case; resolution never fails.
func ResolvePreferences(user *models.User) models.PreferenceMatrix {
	matrix := DefaultPreferences()
	if user == nil || user.Preferences == nil {
		return matrix
	}

	prefs := user.Preferences
	if prefs.EmailEnabled != nil {
		matrix.EmailEnabled = *prefs.EmailEnabled
	}
	if prefs.PushEnabled != nil {
		matrix.PushEnabled = *prefs.PushEnabled
	}
	if prefs.PriorityThreshold != nil {
		matrix.PriorityThreshold = *prefs.PriorityThreshold
	}
	for _, cat := range allCategories {
		if v, ok := prefs.InApp[cat]; ok && v != nil {
			matrix.InApp[cat] = *v
		}
		if v, ok := prefs.Email[cat]; ok && v != nil {
			matrix.Email[cat] = *v
		}
	}
	return matrix
}
