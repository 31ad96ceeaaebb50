package models

// ProjectProjection is the denormalized slice of the database a search
// document is built from: the project row plus its resolved authors and
// versions.
type ProjectProjection struct {
	Project  Project
	Authors  []User
	Versions []ProjectVersion
}
