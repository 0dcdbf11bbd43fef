package seeds

import (
	"path/filepath"

	"gorm.io/gorm"

	academics "tuitionhub_backend/internals/seeds/academics"
)

// RunAllSeeds loads the demo data under dir. Safe to run repeatedly.
func RunAllSeeds(db *gorm.DB, dir string) error {
	//* Academics (users, students, batches, enrollments) + fee plans
	return academics.SeedAcademicsFromJSON(db, filepath.Join(dir, "academics", "data_academics.json"))
}
